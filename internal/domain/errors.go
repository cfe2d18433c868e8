package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found, or is not
	// owned by the caller. Both cases are reported identically.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict indicates the request conflicts with existing state.
	ErrConflict = errors.New("conflict")
	// ErrUnauthenticated indicates a missing, invalid or revoked credential.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPaymentNotSettled is returned when an order references a payment
	// that has not succeeded.
	ErrPaymentNotSettled = errors.New("payment not settled")
	// ErrCheckoutInFlight is returned when a checkout is already running.
	ErrCheckoutInFlight = errors.New("checkout already in progress")
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a unique value already taken. It matches
// ErrAlreadyExists under errors.Is.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrAlreadyExists }

// GatewayError wraps a failure reported by the payment gateway. Message is
// safe to show to the shopper verbatim.
type GatewayError struct {
	Op      string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment %s failed: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// FatalInconsistencyError means the gateway captured the payment but the
// order record could not be written. It is never retryable as a payment.
type FatalInconsistencyError struct {
	PaymentIntentID string
	Err             error
}

func (e *FatalInconsistencyError) Error() string {
	return fmt.Sprintf("payment %s succeeded but order was not recorded: %v", e.PaymentIntentID, e.Err)
}

func (e *FatalInconsistencyError) Unwrap() error { return e.Err }

// ErrorKind classifies errors into the categories surfaced to shoppers.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindGateway    ErrorKind = "gateway"
	KindFatal      ErrorKind = "fatal_inconsistency"
	KindInternal   ErrorKind = "internal"
)

// Kind reports the category of err.
func Kind(err error) ErrorKind {
	var (
		verr  *ValidationError
		gerr  *GatewayError
		fatal *FatalInconsistencyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fatal):
		return KindFatal
	case errors.As(err, &gerr):
		return KindGateway
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return KindAuth
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict),
		errors.Is(err, ErrCheckoutInFlight), errors.Is(err, ErrPaymentNotSettled):
		return KindConflict
	default:
		return KindInternal
	}
}
