// Package errs provides the unified error type used across schemascope.
//
// Every subsystem (source, schema, rules, filestore, …) wraps its native
// errors into *errs.Error before returning them to callers. Callers use the
// Is* predicates to handle errors without importing driver-specific packages.
//
// Usage:
//
//	// In a source, wrap native errors:
//	return errs.Wrap(errs.ErrKindConnectionFailed, "schema request failed", err)
//
//	// In the browser, decide how to surface it:
//	if errs.IsMalformedDocument(err) {
//	    log.Warn("schema document has unexpected shape")
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
// HTTP, Postgres, MySQL and MinIO failures all map to one of these kinds.
type ErrKind int

const (
	ErrKindUnknown           ErrKind = iota
	ErrKindNotFound                  // 404, unknown database index, missing object
	ErrKindConnectionFailed          // cannot reach the backend or non-2xx status
	ErrKindTimeout                   // context deadline / cancellation
	ErrKindQueryFailed               // introspection query error
	ErrKindInvalidInput              // bad arguments from the caller
	ErrKindPermissionDenied          // 401/403, access denied
	ErrKindMalformedDocument         // body does not match the expected schema shape
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindMalformedDocument:
		return "malformed_document"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all schemascope subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original backend-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or transport failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is an introspection query failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsMalformedDocument reports whether err came from decoding a schema
// document with an unexpected shape.
func IsMalformedDocument(err error) bool {
	return KindOf(err) == ErrKindMalformedDocument
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
