// Package apperr holds the error codes returned in JSON bodies by the API.
package apperr

import (
	"errors"
	"net/http"
)

// Code is the machine-readable error identifier sent to clients.
type Code string

const (
	CodeMissingToken        Code = "missing_token"
	CodeUnauthenticated     Code = "unauthenticated"
	CodeForbidden           Code = "forbidden"
	CodeNoAccess            Code = "no_access"
	CodeBadRequest          Code = "bad_request"
	CodeNotFound            Code = "not_found"
	CodeGiftNotFound        Code = "gift_not_found"
	CodeAlreadyRevealed     Code = "already_revealed"
	CodeExpired             Code = "expired"
	CodeReadOnly            Code = "read_only"
	CodeDBUpdateFailed      Code = "db_update_failed"
	CodeServerError         Code = "server_error"
	CodeServerMisconfigured Code = "server_misconfigured"
)

// Codes lists every known code.
var Codes = []Code{
	CodeMissingToken,
	CodeUnauthenticated,
	CodeForbidden,
	CodeNoAccess,
	CodeBadRequest,
	CodeNotFound,
	CodeGiftNotFound,
	CodeAlreadyRevealed,
	CodeExpired,
	CodeReadOnly,
	CodeDBUpdateFailed,
	CodeServerError,
	CodeServerMisconfigured,
}

// Status maps the code onto its HTTP status.
func (c Code) Status() int {
	switch c {
	case CodeMissingToken, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNoAccess:
		return http.StatusForbidden
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound, CodeGiftNotFound:
		return http.StatusNotFound
	case CodeAlreadyRevealed, CodeExpired:
		return http.StatusConflict
	case CodeReadOnly:
		return http.StatusServiceUnavailable
	case CodeDBUpdateFailed, CodeServerError, CodeServerMisconfigured:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Error carries a Code together with the underlying cause.
type Error struct {
	Code Code
	Err  error
}

func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Coder is implemented by domain errors that know their client code.
type Coder interface {
	ErrorCode() Code
}

// CodeOf extracts the code from err, falling back to server_error.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeServerError
}
