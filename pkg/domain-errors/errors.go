// Package domainerrors provides coded errors shared across services and
// transports. Services attach a Code at the point the failure is classified;
// transports translate codes to HTTP statuses without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeNotFound marks a missing video, course or record.
	CodeNotFound Code = "not_found"

	// CodeUnavailable marks a video or course that exists but is not active.
	CodeUnavailable Code = "unavailable"

	// CodeAuthorizationDenied marks the absence of an active, paid entitlement.
	CodeAuthorizationDenied Code = "authorization_denied"

	// CodeInvalidToken marks a proof with a bad signature or past expiry.
	CodeInvalidToken Code = "invalid_token"

	// CodeQuotaExceeded marks an exhausted playback quota.
	CodeQuotaExceeded Code = "quota_exceeded"

	// CodeUpstream marks a provider, oracle or catalog call that timed out or
	// returned a malformed response. Never grants access.
	CodeUpstream Code = "upstream_error"

	// CodeInvalidInput marks malformed caller input. A caller bug signal, not
	// a security event.
	CodeInvalidInput Code = "invalid_input"

	// CodeInternal marks unexpected failures inside this service.
	CodeInternal Code = "internal"
)

// Error is the concrete coded error type. Wrapped causes are preserved for
// errors.Is / errors.As chains.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status the transport layer returns.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusConflict
	case CodeAuthorizationDenied:
		return http.StatusForbidden
	case CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
