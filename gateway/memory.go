package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Gateway = (*MemoryGateway)(nil)

// MemoryGateway is an in-process Gateway keeping rows per table in insertion
// order. Identities for rows inserted without one are assigned from a per
// table counter starting at 1. It is meant for tests and examples.
type MemoryGateway struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
}

type memoryTable struct {
	rows   []Row
	nextID int64
}

// NewMemoryGateway returns an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{tables: make(map[string]*memoryTable)}
}

// Seed appends rows to table without any identity handling.
func (m *MemoryGateway) Seed(table, identityColumn string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(table)
	for _, r := range rows {
		t.rows = append(t.rows, r.Clone())
		if id, ok := toInt64(r[identityColumn]); ok && id >= t.nextID {
			t.nextID = id
		}
	}
}

// Len returns the number of rows stored in table.
func (m *MemoryGateway) Len(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tables[table]; ok {
		return len(t.rows)
	}
	return 0
}

// Fetch implements Gateway.
func (m *MemoryGateway) Fetch(_ context.Context, table string, query Query) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[table]
	if !ok {
		return []Row{}, nil
	}

	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if matches(r, query.Filters) {
			out = append(out, r.Clone())
		}
	}

	if len(query.OrderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, col := range query.OrderBy {
				if c := compareValues(out[i][col], out[j][col]); c != 0 {
					return c < 0
				}
			}
			return false
		})
	}

	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// UpdateOrInsert implements Gateway.
func (m *MemoryGateway) UpdateOrInsert(_ context.Context, table, identityColumn string, where []Filter, values Row) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(table)

	if len(where) > 0 {
		updated := 0
		var id any
		for _, r := range t.rows {
			if !matches(r, where) {
				continue
			}
			for k, v := range values {
				r[k] = v
			}
			id = r[identityColumn]
			updated++
		}
		if updated > 0 {
			return id, true, nil
		}
	}

	row := values.Clone()
	for _, f := range where {
		row[f.Column] = f.Value
	}
	if v, ok := row[identityColumn]; !ok || v == nil {
		t.nextID++
		row[identityColumn] = t.nextID
	} else if id, ok := toInt64(v); ok && id > t.nextID {
		t.nextID = id
	}
	t.rows = append(t.rows, row)
	return row[identityColumn], true, nil
}

// Delete implements Gateway.
func (m *MemoryGateway) Delete(_ context.Context, table string, where ...Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[table]
	if !ok {
		return 0, nil
	}

	kept := t.rows[:0]
	var deleted int64
	for _, r := range t.rows {
		if matches(r, where) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	return deleted, nil
}

func (m *MemoryGateway) table(name string) *memoryTable {
	t, ok := m.tables[name]
	if !ok {
		t = &memoryTable{}
		m.tables[name] = t
	}
	return t
}

func matches(r Row, filters []Filter) bool {
	for _, f := range filters {
		if compareValues(r[f.Column], f.Value) != 0 {
			return false
		}
	}
	return true
}

// compareValues orders numbers numerically and everything else by its
// string form. nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	f, ok := toFloat64(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
