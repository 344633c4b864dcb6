// Package pkgerrors defines the domain error vocabulary shared by services and
// transports. Stores return pkg/platform/sentinel errors; services translate
// them into a DomainError with a stable code the HTTP layer can map to a
// status without inspecting message text.
package pkgerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	CodeUnauthorized      Code = "unauthorized"
	CodeForbidden         Code = "forbidden"
	CodeNotFound          Code = "not_found"
	CodeInvalidState      Code = "invalid_state"
	CodeAlreadyActive     Code = "already_active"
	CodeAlreadyMember     Code = "already_member"
	CodeNoLedgerKey       Code = "no_ledger_key"
	CodeLedgerUnavailable Code = "ledger_unavailable"
	CodeBadRequest        Code = "bad_request"
	CodeTimeout           Code = "timeout"
	CodeInternal          Code = "internal"
)

// DomainError carries a machine-readable code alongside a human message.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// New builds a DomainError without an underlying cause.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the domain code from err, or CodeInternal when err carries
// no DomainError in its chain.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is makes errors.Is match two DomainErrors by code, so callers can compare
// against a template error without caring about messages.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if errors.As(target, &de) {
		return e.Code == de.Code
	}
	return false
}

// ToHTTPStatus maps a domain code to the HTTP status the transport layer
// should respond with.
func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeAlreadyActive, CodeAlreadyMember:
		return http.StatusConflict
	case CodeNoLedgerKey:
		return http.StatusPreconditionFailed
	case CodeLedgerUnavailable:
		return http.StatusServiceUnavailable
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
