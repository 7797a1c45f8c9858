// Package sqlutil classifies driver errors from the supported storage engines.
package sqlutil

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PostgreSQL error codes
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
)

// IsUniqueViolation reports whether err is a unique or primary-key
// constraint violation from either Postgres or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == CodeUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}

	return containsErrorCode(err, CodeUniqueViolation) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotNullViolation reports whether err is a NOT NULL violation.
func IsNotNullViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == CodeNotNullViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_NOTNULL
	}

	return containsErrorCode(err, CodeNotNullViolation) ||
		strings.Contains(err.Error(), "NOT NULL constraint failed")
}

// containsErrorCode checks if the error message carries a SQLSTATE code,
// which is how the code surfaces once a driver error has been flattened.
func containsErrorCode(err error, code string) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "SQLSTATE "+code) || strings.Contains(errStr, "("+code+")")
}
