package errors

import (
	"errors"
	"fmt"
)

var (
	// Sale errors
	ErrSaleNotFound      = errors.New("sale not found")
	ErrSaleWithoutItems  = errors.New("sale must have at least one item")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidTotal      = errors.New("invalid total")
	ErrInvalidPosNumber  = errors.New("invalid pos number")
	ErrTenantMismatch    = errors.New("tenant does not match session")
	ErrActorMismatch     = errors.New("actor does not match session")
	ErrDuplicateSaleItem = errors.New("duplicate product in sale")

	// Inventory errors
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidStock    = errors.New("invalid stock quantity")

	// Pending queue errors
	ErrDuplicateQueuedSale = errors.New("queued sale already exists")
	ErrSyncInProgress      = errors.New("sync pass already in progress")
	ErrNoSession           = errors.New("no authenticated session")
	ErrOffline             = errors.New("terminal is offline")

	// Remote errors
	ErrRemoteUnavailable = errors.New("remote sale service unavailable")
	ErrRemoteRejected    = errors.New("sale rejected by remote service")
	ErrRemoteTimeout     = errors.New("remote request timeout")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsRemoteRejection reports whether err is a permanent business-rule rejection
// from the remote sale service, as opposed to a transient failure.
func IsRemoteRejection(err error) bool {
	return errors.Is(err, ErrRemoteRejected)
}
