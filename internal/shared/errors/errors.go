package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error for propagation and presentation
type Kind string

// Error kinds
const (
	// KindValidation: bad input, rejected before any transaction starts
	KindValidation Kind = "VALIDATION"
	// KindDomainGuard: a business rule rejected the operation inside the transaction
	KindDomainGuard Kind = "DOMAIN_GUARD"
	// KindInvariant: an internal consistency check failed; never silently corrected
	KindInvariant Kind = "INVARIANT"
	// KindIdempotencyConflict: an idempotency key was reused with a different payload
	KindIdempotencyConflict Kind = "IDEMPOTENCY_CONFLICT"
	// KindApprovalState: the approval request cannot make the requested transition
	KindApprovalState Kind = "APPROVAL_STATE"
	KindNotFound      Kind = "NOT_FOUND"
	KindForbidden     Kind = "FORBIDDEN"
	KindInternal      Kind = "INTERNAL"
)

// AppError represents an application error with additional context
type AppError struct {
	Kind    Kind   // Classification
	Code    string // Error code for client
	Message string // Human-readable message
	Err     error  // Underlying error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError by code so a wrapped copy still matches its sentinel
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e carrying err as its cause
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

// Explain returns a copy of e with a more specific message
func (e *AppError) Explain(format string, args ...any) *AppError {
	return &AppError{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// New creates a new AppError
func New(kind Kind, code, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Validation creates a validation error
func Validation(code, message string) *AppError {
	return New(KindValidation, code, message)
}

// DomainGuard creates a business-rule error
func DomainGuard(code, message string) *AppError {
	return New(KindDomainGuard, code, message)
}

// Invariant creates an invariant-violation error
func Invariant(code, message string) *AppError {
	return New(KindInvariant, code, message)
}

// IdempotencyConflict creates an idempotency conflict error
func IdempotencyConflict(code, message string) *AppError {
	return New(KindIdempotencyConflict, code, message)
}

// ApprovalState creates an approval state error
func ApprovalState(code, message string) *AppError {
	return New(KindApprovalState, code, message)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource))
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return New(KindForbidden, "FORBIDDEN", message)
}

// Internal creates an internal error
func Internal(message string, err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
		Err:     err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// KindOf returns the kind of err, or KindInternal when err is not an AppError
func KindOf(err error) Kind {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Kind
	}
	return KindInternal
}
