package gateway

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
	}{
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, true},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, false},
		{"pgx unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"pgx syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"pq not null violation", &pq.Error{Code: "23502"}, true},
		{"plain error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err, "insert", "widgets")
			assert.Equal(t, tt.rejected, IsWriteRejected(err))
			assert.Equal(t, !tt.rejected, IsPersistenceError(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestPersistenceError(t *testing.T) {
	assert.NoError(t, PersistenceError(nil, "fetch", "widgets"))

	err := PersistenceError(errors.New("boom"), "fetch", "widgets")
	var rich *goerrors.Error
	if assert.True(t, goerrors.As(err, &rich)) {
		assert.Equal(t, goerrors.CategoryExternal, rich.Category)
		assert.Equal(t, "widgets", rich.Metadata["table"])
	}
}
