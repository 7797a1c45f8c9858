package apperror

import (
	"errors"
	"fmt"
)

// Error is a failure carrying a stable machine-readable code.
type Error struct {
	Code     string
	Message  string
	Internal error
	Details  map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an *Error with the same code, so sentinel
// values below work with errors.Is after WithInternal/WithMessage copies.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		Code:     e.Code,
		Message:  e.Message,
		Internal: err,
		Details:  e.Details,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		Code:     e.Code,
		Message:  message,
		Internal: e.Internal,
		Details:  e.Details,
	}
}

// WithDetails returns a copy of the error with details attached
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		Code:     e.Code,
		Message:  e.Message,
		Internal: e.Internal,
		Details:  details,
	}
}

// New creates a new application error
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

var (
	// ErrAllocation means the global counter could not be advanced.
	ErrAllocation = New("allocation_failed", "Global id allocation failed")
	// ErrDuplicateRelation means the relation key is already stored.
	ErrDuplicateRelation = New("duplicate_relation", "Relation already exists")
	ErrUnknownKind       = New("unknown_kind", "Kind is not registered")
	ErrInvalidArgument   = New("invalid_argument", "Invalid argument")
	ErrNotFound          = New("not_found", "Resource not found")
	ErrDatabase          = New("database_error", "Database operation failed")
)

// NewInvalidArgument creates an invalid argument error with a custom message
func NewInvalidArgument(format string, args ...any) *Error {
	return ErrInvalidArgument.WithMessage(fmt.Sprintf(format, args...))
}

// NewNotFound creates a not found error for a resource type and name
func NewNotFound(resourceType, name string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", resourceType, name))
}

// NewUnknownKind reports a kind name missing from the catalog.
func NewUnknownKind(name string) *Error {
	return ErrUnknownKind.WithMessage(fmt.Sprintf("kind '%s' is not registered", name))
}
