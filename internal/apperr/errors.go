// Package apperr defines the error vocabulary shared across Skald.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// ValidationKind identifies why a name or path was rejected. Validation
// failures are returned synchronously, never panicked, so callers can
// map them to a user-facing message before touching storage.
type ValidationKind string

const (
	ValidationEmpty         ValidationKind = "empty"
	ValidationForbiddenChar ValidationKind = "forbidden_character"
	ValidationReservedName  ValidationKind = "reserved_name"
	ValidationDotSpaceEdge  ValidationKind = "leading_trailing_dot_or_space"
	ValidationTraversal     ValidationKind = "path_traversal"
)

// ValidationError carries a machine-readable kind alongside the
// offending value.
type ValidationError struct {
	Kind  ValidationKind
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Value, e.Kind)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
