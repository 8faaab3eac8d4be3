// errors.go - Error taxonomy surfaced to HTTP clients

package ocr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind categorizes a failure for the HTTP boundary
type ErrorKind string

const (
	KindInvalidInput    ErrorKind = "invalid_input"
	KindPayloadTooLarge ErrorKind = "payload_too_large"
	KindInference       ErrorKind = "inference_error"
)

// Error is a categorized request failure. Message is safe to return to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the error kind to an HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInvalidInput, KindPayloadTooLarge:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// InvalidInput builds a KindInvalidInput error
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// PayloadTooLarge builds a KindPayloadTooLarge error
func PayloadTooLarge(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPayloadTooLarge, Message: fmt.Sprintf(format, args...)}
}

// InferenceFailed wraps an engine failure
func InferenceFailed(err error) *Error {
	return &Error{
		Kind:    KindInference,
		Message: fmt.Sprintf("OCR inference failed: %v", err),
		Err:     err,
	}
}

// AsError converts any error into an *Error; unknown errors become inference errors.
func AsError(err error) *Error {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr
	}
	return InferenceFailed(err)
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	var oerr *Error
	return errors.As(err, &oerr) && oerr.Kind == kind
}
