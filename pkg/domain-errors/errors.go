// Package domainerrors provides code-based domain errors for the service.
//
// Domain errors carry a stable machine-readable Code plus a human-readable
// message. Services construct them with New or wrap infrastructure errors
// with Wrap; transport layers translate codes to HTTP statuses with
// ToHTTPStatus. Use HasCode (or Is) to branch on a code without string
// matching.
//
// For factual infrastructure states (not found, expired, unavailable) stores
// return pkg/platform/sentinel errors instead; services translate those into
// domain errors at the boundary where the fact becomes a decision.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain error. Codes are part of the API
// contract: they appear verbatim in error envelopes and audit records.
type Code string

const (
	// Generic caller errors.
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_failed"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"

	// Invariant violations detected inside the domain layer.
	CodeInvariantViolation Code = "invariant_violation"

	// Compliance-specific errors.
	CodeInvalidAge          Code = "invalid_age"
	CodeUnknownCategory     Code = "unknown_data_category"
	CodeInvalidPolicyConfig Code = "invalid_policy_configuration"
	CodeMissingConsent      Code = "missing_consent"
	CodeInvalidConsent      Code = "invalid_consent"

	// Server-side failures.
	CodeInternal    Code = "internal_error"
	CodeUnavailable Code = "service_unavailable"
)

// Error is a domain error with a stable code. It wraps an optional cause so
// errors.Is/errors.As keep working through it.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause remains
// reachable through errors.Unwrap for logging and errors.Is checks.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes errors.Is match two domain errors by code, so sentinel-style
// comparisons like errors.Is(err, dErrors.New(dErrors.CodeNotFound, ""))
// behave sensibly.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// HasCode reports whether err is (or wraps) a domain error with the code.
func HasCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// Is reports whether err carries the given code. Alias of HasCode kept for
// call-site readability: dErrors.Is(err, dErrors.CodeBadRequest).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// non-domain errors so unexpected failures never leak details.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// httpStatusByCode is the single source of truth for code → status mapping.
var httpStatusByCode = map[Code]int{
	CodeBadRequest:          http.StatusBadRequest,
	CodeInvalidInput:        http.StatusBadRequest,
	CodeValidation:          http.StatusBadRequest,
	CodeInvalidAge:          http.StatusBadRequest,
	CodeUnknownCategory:     http.StatusBadRequest,
	CodeInvalidConsent:      http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeConflict:            http.StatusConflict,
	CodeUnauthorized:        http.StatusUnauthorized,
	CodeForbidden:           http.StatusForbidden,
	CodeMissingConsent:      http.StatusForbidden,
	CodeTimeout:             http.StatusGatewayTimeout,
	CodeInvariantViolation:  http.StatusInternalServerError,
	CodeInvalidPolicyConfig: http.StatusInternalServerError,
	CodeInternal:            http.StatusInternalServerError,
	CodeUnavailable:         http.StatusServiceUnavailable,
}

// ToHTTPStatus maps a code to its HTTP status. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether the code maps to a 4xx status.
func IsClientError(code Code) bool {
	status := ToHTTPStatus(code)
	return status >= 400 && status < 500
}
