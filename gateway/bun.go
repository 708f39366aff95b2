package gateway

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

var _ Gateway = (*BunGateway)(nil)

// BunGateway implements Gateway on top of a bun connection using map models,
// so any table can be read and written without a registered struct model.
type BunGateway struct {
	db        bun.IDB
	returning bool
}

// NewBunGateway wraps db. Inserts use RETURNING when the dialect supports it and
// fall back to LastInsertId otherwise.
func NewBunGateway(db bun.IDB) *BunGateway {
	return &BunGateway{
		db:        db,
		returning: db.Dialect().Features().Has(feature.InsertReturning),
	}
}

// Fetch implements Gateway.
func (g *BunGateway) Fetch(ctx context.Context, table string, query Query) ([]Row, error) {
	q := g.db.NewSelect().TableExpr("?", bun.Ident(table))
	for _, f := range query.Filters {
		q = q.Where("? = ?", bun.Ident(f.Column), f.Value)
	}
	for _, col := range query.OrderBy {
		q = q.OrderExpr("? ASC", bun.Ident(col))
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var raw []map[string]any
	if err := q.Scan(ctx, &raw); err != nil {
		if isNoRows(err) {
			return []Row{}, nil
		}
		return nil, classify(err, "fetch", table)
	}

	rows := make([]Row, len(raw))
	for i, r := range raw {
		rows[i] = Row(r)
	}
	return rows, nil
}

// UpdateOrInsert implements Gateway.
func (g *BunGateway) UpdateOrInsert(ctx context.Context, table, identityColumn string, where []Filter, values Row) (any, bool, error) {
	if len(where) > 0 {
		updated, err := g.update(ctx, table, where, values)
		if err != nil {
			return nil, false, err
		}
		if updated > 0 {
			if id, ok := filterValue(where, identityColumn); ok {
				return id, true, nil
			}
			return nil, true, nil
		}
	}

	merged := values.Clone()
	for _, f := range where {
		merged[f.Column] = f.Value
	}
	return g.insert(ctx, table, identityColumn, merged)
}

func (g *BunGateway) update(ctx context.Context, table string, where []Filter, values Row) (int64, error) {
	if len(values) == 0 {
		// nothing to set, report a match so the caller does not insert a duplicate
		return g.count(ctx, table, where)
	}

	set := map[string]any(values.Clone())
	q := g.db.NewUpdate().Model(&set).TableExpr("?", bun.Ident(table))
	for _, f := range where {
		q = q.Where("? = ?", bun.Ident(f.Column), f.Value)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, classify(err, "update", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err, "update", table)
	}
	return n, nil
}

func (g *BunGateway) count(ctx context.Context, table string, where []Filter) (int64, error) {
	q := g.db.NewSelect().TableExpr("?", bun.Ident(table))
	for _, f := range where {
		q = q.Where("? = ?", bun.Ident(f.Column), f.Value)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, classify(err, "count", table)
	}
	return int64(n), nil
}

func (g *BunGateway) insert(ctx context.Context, table, identityColumn string, values Row) (any, bool, error) {
	set := map[string]any(values)
	q := g.db.NewInsert().Model(&set).TableExpr("?", bun.Ident(table))

	if g.returning {
		var out map[string]any
		if err := q.Returning("?", bun.Ident(identityColumn)).Scan(ctx, &out); err != nil {
			if isNoRows(err) {
				return nil, false, nil
			}
			return nil, false, classify(err, "insert", table)
		}
		id, ok := out[identityColumn]
		if !ok {
			return nil, false, nil
		}
		return id, true, nil
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, false, classify(err, "insert", table)
	}
	if id, ok := values[identityColumn]; ok && id != nil {
		return id, true, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, classify(err, "insert", table)
	}
	return id, true, nil
}

// Delete implements Gateway.
func (g *BunGateway) Delete(ctx context.Context, table string, where ...Filter) (int64, error) {
	q := g.db.NewDelete().TableExpr("?", bun.Ident(table))
	for _, f := range where {
		q = q.Where("? = ?", bun.Ident(f.Column), f.Value)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, classify(err, "delete", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err, "delete", table)
	}
	return n, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func filterValue(filters []Filter, column string) (any, bool) {
	for _, f := range filters {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}
