package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without internal error",
			err:      &Error{Code: "not_found", Message: "Resource not found"},
			expected: "not_found: Resource not found",
		},
		{
			name:     "with internal error",
			err:      &Error{Code: "database_error", Message: "insert failed", Internal: errors.New("disk full")},
			expected: "database_error: insert failed (disk full)",
		},
		{
			name:     "empty message",
			err:      &Error{Code: "invalid_argument"},
			expected: "invalid_argument: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrAllocation.WithInternal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ErrAllocation.Unwrap())
}

func TestErrorIs_MatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("save graph: %w", ErrDuplicateRelation.WithInternal(errors.New("UNIQUE constraint failed")))

	assert.ErrorIs(t, wrapped, ErrDuplicateRelation)
	assert.NotErrorIs(t, wrapped, ErrAllocation)

	var appErr *Error
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "duplicate_relation", appErr.Code)
}

func TestCopiesDoNotMutateSentinels(t *testing.T) {
	_ = ErrNotFound.WithMessage("changed").WithDetails(map[string]any{"k": "v"})

	assert.Equal(t, "Resource not found", ErrNotFound.Message)
	assert.Nil(t, ErrNotFound.Details)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code string
		msg  string
	}{
		{"invalid argument", NewInvalidArgument("n must be >= 0, got %d", -1), "invalid_argument", "n must be >= 0, got -1"},
		{"not found", NewNotFound("object type", "Monument"), "not_found", "object type 'Monument' not found"},
		{"unknown kind", NewUnknownKind("Planet"), "unknown_kind", "kind 'Planet' is not registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.msg, tt.err.Message)
		})
	}
}
