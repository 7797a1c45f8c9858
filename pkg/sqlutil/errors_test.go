package sqlutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "pg unique violation", err: &pgconn.PgError{Code: CodeUniqueViolation}, want: true},
		{name: "wrapped pg unique violation", err: fmt.Errorf("insert relation: %w", &pgconn.PgError{Code: CodeUniqueViolation}), want: true},
		{name: "pg foreign key violation", err: &pgconn.PgError{Code: CodeForeignKeyViolation}, want: false},
		{name: "flattened SQLSTATE", err: errors.New("ERROR: duplicate key value (SQLSTATE 23505)"), want: true},
		{name: "sqlite message", err: errors.New("constraint failed: UNIQUE constraint failed: relations.src, relations.rtype (2067)"), want: true},
		{name: "unrelated error", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsNotNullViolation(t *testing.T) {
	assert.True(t, IsNotNullViolation(&pgconn.PgError{Code: CodeNotNullViolation}))
	assert.True(t, IsNotNullViolation(errors.New("NOT NULL constraint failed: countries.name")))
	assert.False(t, IsNotNullViolation(&pgconn.PgError{Code: CodeUniqueViolation}))
	assert.False(t, IsNotNullViolation(nil))
}
