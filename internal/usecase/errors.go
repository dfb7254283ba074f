package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates the provided username or password are
	// incorrect, the account is unknown, disabled, or deleted. Deliberately
	// indistinguishable from the caller's point of view.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the presented session token does not exist.
	ErrInvalidToken = errors.New("invalid authentication token")
	// ErrForbidden indicates the caller lacks the capability or ownership
	// required for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound indicates the referenced account does not exist or is
	// deleted.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyExistingUsername indicates the username is taken by a live
	// account.
	ErrAlreadyExistingUsername = errors.New("username already in use")
	// ErrKeyNotFound indicates the password recovery key is unknown or has
	// expired.
	ErrKeyNotFound = errors.New("recovery key not found")
	// ErrUserUsedInRouteModel indicates the account participates in a
	// workflow route model and cannot be deleted.
	ErrUserUsedInRouteModel = errors.New("user referenced by a route model")
	// ErrDocumentNotFound indicates the referenced document does not exist
	// or is deleted.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrFileNotFound indicates the referenced file does not exist or is
	// deleted.
	ErrFileNotFound = errors.New("file not found")
	// ErrQuotaExceeded indicates the upload would push the owner past their
	// storage quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// RouteModelConflictError names the workflow still referencing an account
// whose deletion was refused. errors.Is matches ErrUserUsedInRouteModel.
type RouteModelConflictError struct {
	RouteModel string
}

func (e *RouteModelConflictError) Error() string {
	return fmt.Sprintf("user referenced by route model %q", e.RouteModel)
}

func (e *RouteModelConflictError) Unwrap() error { return ErrUserUsedInRouteModel }

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError constructs a field-level validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ErrCodeRequired is returned when an account gated by two-factor
// authentication logs in without a one-time code. Distinct from a wrong
// code, which yields ErrForbidden.
var ErrCodeRequired = NewValidationError("code", "a time-based one-time code is required")
