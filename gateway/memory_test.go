package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGateway_AssignsIdentities(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()

	id1, ok, err := gw.UpdateOrInsert(ctx, "widgets", "id", nil, Row{"name": "a"})
	require.NoError(t, err)
	require.True(t, ok)
	id2, _, err := gw.UpdateOrInsert(ctx, "widgets", "id", nil, Row{"name": "b"})
	require.NoError(t, err)

	assert.EqualValues(t, 1, id1)
	assert.EqualValues(t, 2, id2)
	assert.Equal(t, 2, gw.Len("widgets"))
}

func TestMemoryGateway_UpdateOrInsert(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	gw.Seed("widgets", "id", Row{"id": int64(7), "name": "seeded"})

	id, ok, err := gw.UpdateOrInsert(ctx, "widgets", "id", []Filter{Where("id", 7)}, Row{"name": "renamed"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 7, id)

	id, _, err = gw.UpdateOrInsert(ctx, "widgets", "id", []Filter{Where("id", 99)}, Row{"name": "new"})
	require.NoError(t, err)
	assert.EqualValues(t, 99, id)

	id, _, err = gw.UpdateOrInsert(ctx, "widgets", "id", nil, Row{"name": "next"})
	require.NoError(t, err)
	assert.EqualValues(t, 100, id)

	rows, err := gw.Fetch(ctx, "widgets", Query{Filters: []Filter{Where("id", int64(7))}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "renamed", rows[0]["name"])
}

func TestMemoryGateway_FetchReturnsCopies(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	gw.Seed("widgets", "id", Row{"id": 1, "name": "a"})

	rows, err := gw.Fetch(ctx, "widgets", Query{})
	require.NoError(t, err)
	rows[0]["name"] = "mutated"

	rows, err = gw.Fetch(ctx, "widgets", Query{})
	require.NoError(t, err)
	assert.Equal(t, "a", rows[0]["name"])
}

func TestMemoryGateway_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	gw.Seed("widgets", "id",
		Row{"id": 3, "name": "c"},
		Row{"id": 1, "name": "a"},
		Row{"id": 2, "name": "b"},
	)

	rows, err := gw.Fetch(ctx, "widgets", Query{OrderBy: []string{"id"}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0]["id"])
	assert.Equal(t, 2, rows[1]["id"])
}

func TestMemoryGateway_Delete(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	gw.Seed("widgets", "id", Row{"id": 1}, Row{"id": 2})

	n, err := gw.Delete(ctx, "widgets", Where("id", 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, gw.Len("widgets"))

	n, err = gw.Delete(ctx, "unknown", Where("id", 1))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"mixed ints", int64(2), 2, 0},
		{"float vs int", 1.5, 2, -1},
		{"strings", "b", "a", 1},
		{"nil first", nil, 0, -1},
		{"both nil", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareValues(tt.a, tt.b))
		})
	}
}
