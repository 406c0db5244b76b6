package service

import (
	"errors"
	"fmt"
)

// Credential store failures.
var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("invalid credentials")
	ErrNotFound   = errors.New("user not found")
	ErrUserExists = errors.New("user already exists")
)

// Token codec failures. Callers outside this package should surface all
// three as "unauthorized"; the distinction is kept for logging.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("token signature mismatch")
	ErrExpiredToken   = errors.New("token expired")
)

// Access guard outcomes.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("admin access required")
)

// FieldError describes malformed input on a single field. It matches
// ErrValidation under errors.Is.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UnauthenticatedError is returned by Guard.Authorize. It matches
// ErrUnauthenticated and unwraps to the underlying token failure, if any.
type UnauthenticatedError struct {
	Reason string // absent, malformed, bad_signature, expired
	Err    error
}

func (e *UnauthenticatedError) Error() string {
	if e.Err != nil {
		return "unauthenticated (" + e.Reason + "): " + e.Err.Error()
	}
	return "unauthenticated (" + e.Reason + ")"
}

func (e *UnauthenticatedError) Is(target error) bool {
	return target == ErrUnauthenticated
}

func (e *UnauthenticatedError) Unwrap() error {
	return e.Err
}

// TokenFailureReason maps a token verification error to a short tag for logs.
func TokenFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	default:
		return "unknown"
	}
}
