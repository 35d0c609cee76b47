// Package apperr defines the domain error taxonomy shared across services,
// repositories, and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password so responses never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrSessionExpired = errors.New("session has expired")

	ErrEmailTaken    = errors.New("email already exists")
	ErrPhoneTaken    = errors.New("phone number already exists")
	ErrRoleNameTaken = errors.New("role name already exists")
)

// ValidationError carries per-field messages for a 422 response.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// AsError returns nil when no field failed, so callers can write
// `return cmd.Validate()` style checks.
func (e *ValidationError) AsError() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}
