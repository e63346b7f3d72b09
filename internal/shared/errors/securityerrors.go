package errors

import (
	stderrors "errors"
	"net/http"
)

// Client-visible error codes of the request security pipeline. Every denial
// maps to exactly one of these; no other code may leak to the client.
const (
	CodeMissingCredentials = "auth/missing-credentials"
	CodeInvalidSession     = "auth/invalid-session"
	CodeTwoFactorRequired  = "auth/2fa-required"
	CodeSchemaMismatch     = "validation/schema-mismatch"
	CodeUnknown            = "internal/unknown"
)

// SecurityError is the error type produced by the request security pipeline.
// Code is the stable, client-visible taxonomy string; Fields carries
// per-field validation detail for schema mismatches.
type SecurityError struct {
	*AppError
	SecurityCode string
	Fields       map[string]string
	// ShouldLog determines if this error should be logged at error level.
	// Expected denials (missing headers, stale tokens) are audit events, not log noise.
	ShouldLog bool
}

// Error implements the error interface
func (e *SecurityError) Error() string {
	return e.AppError.Error()
}

// Unwrap allows errors.Is and errors.As to work correctly
func (e *SecurityError) Unwrap() error {
	return e.AppError
}

// NewMissingCredentialsError creates an error for requests lacking session headers
func NewMissingCredentialsError() *SecurityError {
	return &SecurityError{
		AppError: &AppError{
			Type:    ErrorTypeUnauthorized,
			Message: "Session credentials are required",
			Code:    http.StatusUnauthorized,
		},
		SecurityCode: CodeMissingCredentials,
		ShouldLog:    false,
	}
}

// NewInvalidSessionError creates an error for sessions that are absent, expired,
// carry a stale token, or could not be checked against the store. The cases are
// deliberately indistinguishable to the client (fail closed, no infrastructure leak).
func NewInvalidSessionError() *SecurityError {
	return &SecurityError{
		AppError: &AppError{
			Type:    ErrorTypeUnauthorized,
			Message: "Session is invalid or has expired",
			Code:    http.StatusUnauthorized,
		},
		SecurityCode: CodeInvalidSession,
		ShouldLog:    false,
	}
}

// NewTwoFactorRequiredError creates an error for sensitive routes accessed
// without a step-up token
func NewTwoFactorRequiredError() *SecurityError {
	return &SecurityError{
		AppError: &AppError{
			Type:    ErrorTypeForbidden,
			Message: "Two-factor authentication is required for this resource",
			Code:    http.StatusForbidden,
		},
		SecurityCode: CodeTwoFactorRequired,
		ShouldLog:    false,
	}
}

// NewSchemaMismatchError creates an error for payloads that failed schema
// validation, carrying per-field messages
func NewSchemaMismatchError(fields map[string]string) *SecurityError {
	return &SecurityError{
		AppError: &AppError{
			Type:    ErrorTypeValidation,
			Message: "Request validation failed",
			Code:    http.StatusBadRequest,
		},
		SecurityCode: CodeSchemaMismatch,
		Fields:       fields,
		ShouldLog:    false,
	}
}

// NewUnknownError wraps an unexpected internal failure without exposing its cause
func NewUnknownError(details ...string) *SecurityError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &SecurityError{
		AppError: &AppError{
			Type:    ErrorTypeInternal,
			Message: "Internal server error occurred",
			Code:    http.StatusInternalServerError,
			Details: detail,
		},
		SecurityCode: CodeUnknown,
		ShouldLog:    true,
	}
}

// GetSecurityError extracts a SecurityError from the error chain
func GetSecurityError(err error) *SecurityError {
	var secErr *SecurityError
	if stderrors.As(err, &secErr) {
		return secErr
	}
	return nil
}

// AsSecurityError maps any error to a SecurityError. Non-pipeline errors
// collapse to internal/unknown so unexpected failure modes never leak a new
// code to the client.
func AsSecurityError(err error) *SecurityError {
	if secErr := GetSecurityError(err); secErr != nil {
		return secErr
	}
	return NewUnknownError()
}
