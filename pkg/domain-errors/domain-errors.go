package domainerrors

import (
	"errors"
	"maps"
)

// Code represents a domain error category independent of transport layer.
// Codes are what callers branch on; messages are for humans.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeForbidden          Code = "forbidden"
	CodeInvariantViolation Code = "invariant_violation"
	CodeRateLimited        Code = "rate_limited"

	// Authorization denials. Each one is final for the request and carries a
	// reason the client can render differently.
	CodeUnauthenticated    Code = "unauthenticated"
	CodeNoTenant           Code = "no_tenant"
	CodeForbiddenRole      Code = "forbidden_role"
	CodeTenantSuspended    Code = "tenant_suspended"
	CodeFeatureUnavailable Code = "feature_unavailable"
	CodeQuotaExceeded      Code = "quota_exceeded"

	// CodeUnavailable marks storage or dependency I/O failures. Authorization
	// treats it as a deny.
	CodeUnavailable Code = "unavailable"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
	// Details holds structured context for the client (e.g. quota ceilings).
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// WithDetails creates a domain error carrying structured details.
func WithDetails(code Code, msg string, details map[string]any) error {
	return &Error{Code: code, Message: msg, Details: maps.Clone(details)}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code and details are preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err, Details: existing.Details}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the domain code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// DetailsOf returns the structured details attached to err, if any.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
