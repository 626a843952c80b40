package models

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateIdentity is returned when registering a username that already exists.
	ErrDuplicateIdentity = errors.New("identity already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound is returned when updating, deleting, or reading a missing project.
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrGatewayUnavailable wraps failures of the storage or identity backends.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrForbidden is returned when a principal lacks the edit capability.
	ErrForbidden = errors.New("insufficient permissions")
)

// ValidationError lists the mandatory fields that were missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// Is makes errors.Is(err, ErrValidation) hold for any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
