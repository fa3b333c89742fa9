// Package domainerrors defines the coded error type shared by all engine
// services. Stores return sentinel errors (pkg/platform/sentinel); services
// translate them into coded errors here; the HTTP layer maps codes to status
// lines with ToHTTPStatus. Callers match on codes with HasCode, never on
// message text.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure the caller can act on.
type Code string

const (
	// Validation failures: fix the request and retry.
	CodeInvalidInput      Code = "invalid_input"
	CodeInvalidCoordinate Code = "invalid_coordinate"

	// Authorization failures.
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"

	// State conflicts: the entity is in a state that rejects the operation.
	CodeConflict         Code = "conflict"
	CodeQuorumNotMet     Code = "quorum_not_met"
	CodeClaimClosed      Code = "claim_closed"
	CodeClaimDisputed    Code = "claim_disputed"
	CodeDuplicateDispute Code = "duplicate_dispute"
	CodeDisputeClosed    Code = "dispute_closed"
	CodeAlreadyResolved  Code = "already_resolved"

	// Permanent for the given id.
	CodeNotFound Code = "not_found"

	CodeInternal Code = "internal"
	CodeTimeout  Code = "timeout"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a convenience alias for HasCode, matching call sites that read
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status the transport layer writes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidCoordinate:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeQuorumNotMet, CodeClaimClosed, CodeClaimDisputed,
		CodeDuplicateDispute, CodeDisputeClosed, CodeAlreadyResolved:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
