package gateway

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLogHook_LogsStatements(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	db.AddQueryHook(NewQueryLogHook(logger))

	gw := NewBunGateway(db)
	_, ok, err := gw.UpdateOrInsert(ctx, "widgets", "id", nil, Row{"name": "a"})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = gw.Fetch(ctx, "widgets", Query{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG msg=query")
	assert.Contains(t, out, "operation=INSERT")
	assert.Contains(t, out, "operation=SELECT")
	assert.NotContains(t, out, "query failed")
}

func TestQueryLogHook_WarnsOnFailure(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db.AddQueryHook(NewQueryLogHook(logger))

	_, err := NewBunGateway(db).Fetch(ctx, "missing_table", Query{})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=WARN msg=\"query failed\"")
	assert.Contains(t, out, "missing_table")
}

func TestQueryLogHook_NilLoggerDiscards(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	db.AddQueryHook(NewQueryLogHook(nil))

	_, err := NewBunGateway(db).Fetch(ctx, "widgets", Query{})
	assert.NoError(t, err)
}
