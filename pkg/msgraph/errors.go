package msgraph

import (
	"errors"
	"net/http"
)

// Error types for Microsoft Graph API responses.
var (
	ErrUnauthorised = errors.New("microsoft: unauthorised")
	ErrForbidden    = errors.New("microsoft: forbidden")
	ErrNotFound     = errors.New("microsoft: not found")
	ErrRateLimited  = errors.New("microsoft: rate limited")
	ErrBadRequest   = errors.New("microsoft: bad request")
	ErrServerError  = errors.New("microsoft: server error")
	ErrUnexpected   = errors.New("microsoft: unexpected status")
)

// StatusError carries the HTTP status of a failed Graph call.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// WrapError converts an HTTP status code to an appropriate error.
func WrapError(statusCode int) error {
	var err error
	switch statusCode {
	case http.StatusUnauthorized:
		err = ErrUnauthorised
	case http.StatusForbidden:
		err = ErrForbidden
	case http.StatusNotFound:
		err = ErrNotFound
	case http.StatusTooManyRequests:
		err = ErrRateLimited
	case http.StatusBadRequest:
		err = ErrBadRequest
	default:
		if statusCode >= 500 {
			err = ErrServerError
		} else {
			err = ErrUnexpected
		}
	}
	return &StatusError{StatusCode: statusCode, Err: err}
}

// StatusCode extracts the HTTP status from a Graph error, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
