package model

import (
	"errors"
	"fmt"

	"github.com/roach88/aligner/internal/bcvwp"
)

// Error is a categorized failure raised by the store packages.
//
// Categories:
//   - Malformed reference: a BCVWP string that does not parse
//   - Store initialization: template copy, open or schema failure
//   - Integrity violation: orphaned rows or a corpus without its language
//   - Transport failure: upload or fetch aborted, rejected or unreachable
//   - Query injection risk: a caller-supplied identifier not on an allow-list
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the failing operation ("links.save", "store.open", ...).
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	ErrCodeMalformedReference         ErrorCode = "MALFORMED_REFERENCE"
	ErrCodeStoreInitializationFailure ErrorCode = "STORE_INITIALIZATION_FAILURE"
	ErrCodeIntegrityViolation         ErrorCode = "INTEGRITY_VIOLATION"
	ErrCodeTransportFailure           ErrorCode = "TRANSPORT_FAILURE"
	ErrCodeQueryInjectionRisk         ErrorCode = "QUERY_INJECTION_RISK"
	ErrCodeNotFound                   ErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error.
func NewError(code ErrorCode, op, message string, err error) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// CodeOf returns the code of the first Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, bcvwp.ErrMalformedReference) {
		return ErrCodeMalformedReference
	}
	return ""
}

// IsMalformedReference reports whether err is a reference parse failure.
func IsMalformedReference(err error) bool {
	return CodeOf(err) == ErrCodeMalformedReference
}

// IsStoreInitializationFailure reports whether a store could not be opened.
func IsStoreInitializationFailure(err error) bool {
	return CodeOf(err) == ErrCodeStoreInitializationFailure
}

// IsIntegrityViolation reports whether err is an integrity violation.
func IsIntegrityViolation(err error) bool {
	return CodeOf(err) == ErrCodeIntegrityViolation
}

// IsTransportFailure reports whether err came from the remote transport.
func IsTransportFailure(err error) bool {
	return CodeOf(err) == ErrCodeTransportFailure
}

// IsQueryInjectionRisk reports whether err is a rejected identifier.
func IsQueryInjectionRisk(err error) bool {
	return CodeOf(err) == ErrCodeQueryInjectionRisk
}

// IsNotFound reports whether err is a missing row.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}
