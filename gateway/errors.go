package gateway

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	// TextCodePersistence marks infrastructure failures (connection loss,
	// malformed statements, unknown tables). Callers cannot recover locally.
	TextCodePersistence = "PERSISTENCE_ERROR"

	// TextCodeWriteRejected marks writes refused by the store because they
	// violate an integrity constraint.
	TextCodeWriteRejected = "WRITE_REJECTED"
)

// integrityViolationClass is the SQLSTATE class for integrity constraint violations.
const integrityViolationClass = "23"

// PersistenceError wraps err as a persistence failure for the given operation.
func PersistenceError(err error, op, table string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, op+" "+table+" failed").
		WithTextCode(TextCodePersistence).
		WithMetadata(map[string]any{"operation": op, "table": table})
}

// IsPersistenceError reports whether err is a gateway infrastructure failure.
func IsPersistenceError(err error) bool {
	return hasTextCode(err, TextCodePersistence)
}

// IsWriteRejected reports whether err is a constraint violation reported by the store.
func IsWriteRejected(err error) bool {
	return hasTextCode(err, TextCodeWriteRejected)
}

func hasTextCode(err error, code string) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}

// classify turns a driver error into one of the gateway error kinds.
func classify(err error, op, table string) error {
	if err == nil {
		return nil
	}
	if isConstraintViolation(err) {
		return goerrors.Wrap(err, goerrors.CategoryConflict, op+" "+table+" rejected").
			WithTextCode(TextCodeWriteRejected).
			WithMetadata(map[string]any{"operation": op, "table": table})
	}
	return PersistenceError(err, op, table)
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if goerrors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, integrityViolationClass)
	}

	var pqErr *pq.Error
	if goerrors.As(err, &pqErr) {
		return string(pqErr.Code.Class()) == integrityViolationClass
	}

	return false
}
