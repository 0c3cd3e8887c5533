// Package apperr defines the error taxonomy shared by the policy engine,
// the session stores and the HTTP handlers.  Every failure that can reach a
// client is an *Error carrying a Kind (which fixes the HTTP status) and a
// stable machine-readable Code.  Infrastructure failures are wrapped with
// Internal so that the cause can be logged server-side while the client
// only sees a short generic message.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error into one of the failure tiers.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

// Codes shared by several packages.  Handlers may still use ad-hoc
// *_NOT_FOUND / INVALID_* codes for entity specific cases.
const (
	CodeInternal               = "INTERNAL"
	CodeInvalidID              = "INVALID_ID"
	CodeInvalidBody            = "INVALID_BODY"
	CodeValidation             = "VALIDATION_FAILED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeForbidden              = "FORBIDDEN"
	CodeAdminRequired          = "ADMIN_REQUIRED"
	CodeNotEnrolled            = "NOT_ENROLLED"
	CodeSubscriptionRequired   = "SUBSCRIPTION_REQUIRED"
	CodeAlreadyEnrolled        = "ALREADY_ENROLLED"
)

// Error is the concrete error type returned across package boundaries.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind onto an HTTP status code.  Conflicts are
// reported as 400, not 409.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation reports malformed or missing input.
func Validation(code, msg string) *Error { return newErr(KindValidation, code, msg) }

// Authentication reports a missing, expired or invalid identity.
func Authentication(code, msg string) *Error { return newErr(KindAuthentication, code, msg) }

// Authorization reports a valid identity lacking the entitlement.
func Authorization(code, msg string) *Error { return newErr(KindAuthorization, code, msg) }

// NotFound reports that a referenced entity does not exist.
func NotFound(code, msg string) *Error { return newErr(KindNotFound, code, msg) }

// Conflict reports a duplicate under an explicit administrative action.
func Conflict(code, msg string) *Error { return newErr(KindConflict, code, msg) }

// Internal wraps an upstream failure.  The wrapped error is kept for logs
// and never rendered to clients.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

// From extracts an *Error from err, wrapping unknown errors as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
