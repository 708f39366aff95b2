package gateway

import "context"

// Row is a flat column -> value map as returned by the underlying store.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter is an equality predicate on a single column.
type Filter struct {
	Column string
	Value  any
}

// Where builds a filter for column = value.
func Where(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Query describes a parameterized read against a single table.
// OrderBy entries are column names sorted ascending.
// A Limit of zero or less means no limit.
type Query struct {
	Filters []Filter
	OrderBy []string
	Limit   int
}

// Gateway executes parameterized reads and writes against a relational store.
// Implementations return raw rows; type coercion belongs to the model package.
type Gateway interface {
	// Fetch returns the rows of table matching query.
	Fetch(ctx context.Context, table string, query Query) ([]Row, error)

	// UpdateOrInsert updates the rows matched by where with values. When where is
	// empty, or matches no row, a new row is inserted using values merged with
	// the where columns. It returns the identity of the written row and whether
	// the write happened.
	UpdateOrInsert(ctx context.Context, table, identityColumn string, where []Filter, values Row) (any, bool, error)

	// Delete removes the rows matched by where and returns the affected count.
	Delete(ctx context.Context, table string, where ...Filter) (int64, error)
}
