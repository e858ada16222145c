package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies crawler failures
type Kind string

const (
	KindCredentialsMissing          Kind = "credentials_missing"
	KindUpstreamRequestFailed       Kind = "upstream_request_failed"
	KindEmptyResult                 Kind = "empty_result"
	KindMalformedItem               Kind = "malformed_item"
	KindSigningTransformUnavailable Kind = "signing_transform_unavailable"
	KindInvalidInput                Kind = "invalid_input"
	KindStorageFailed               Kind = "storage_failed"
	KindExportFailed                Kind = "export_failed"
	KindDisabled                    Kind = "disabled"
)

// Sentinels usable with errors.Is
var (
	ErrCredentialsMissing          = &Error{Kind: KindCredentialsMissing}
	ErrUpstreamRequestFailed       = &Error{Kind: KindUpstreamRequestFailed}
	ErrEmptyResult                 = &Error{Kind: KindEmptyResult}
	ErrMalformedItem               = &Error{Kind: KindMalformedItem}
	ErrSigningTransformUnavailable = &Error{Kind: KindSigningTransformUnavailable}
	ErrInvalidInput                = &Error{Kind: KindInvalidInput}
	ErrStorageFailed               = &Error{Kind: KindStorageFailed}
	ErrExportFailed                = &Error{Kind: KindExportFailed}
	ErrDisabled                    = &Error{Kind: KindDisabled}
)

// Error is a crawler error with kind information
type Error struct {
	Kind    Kind
	Message string
	// Code is the upstream HTTP status, 0 when no response was received
	Code int
	Err  error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, which makes the sentinels work
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Upstream creates an upstream_request_failed error carrying an HTTP status
func Upstream(code int, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindUpstreamRequestFailed,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		Err:     err,
	}
}

// KindOf returns the kind of err, or "" when err is not a crawler error
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether an operation failing with err may succeed on retry
func IsRetryable(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return err != nil
	}
	if e.Kind != KindUpstreamRequestFailed && e.Kind != KindStorageFailed {
		return false
	}
	return IsRetryableStatusCode(e.Code)
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // no response
		return true
	case http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}
