package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRunInProgress        = errors.New("calendar sync already running")
	ErrNoRefreshToken       = errors.New("no refresh token stored")
	ErrUserDocumentNotFound = errors.New("user document not found")
	ErrMalformedDocument    = errors.New("malformed user document")
)

// AuthRefreshError is returned when a refresh token cannot be exchanged for an access token.
type AuthRefreshError struct {
	Provider   Provider
	StatusCode int
	Err        error
}

func (e *AuthRefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s token refresh failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s token refresh failed: %v", e.Provider, e.Err)
}

func (e *AuthRefreshError) Unwrap() error { return e.Err }

// CalendarFetchError is returned when the provider's calendar API call fails.
type CalendarFetchError struct {
	Provider   Provider
	StatusCode int
	Err        error
}

func (e *CalendarFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s calendar fetch failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s calendar fetch failed: %v", e.Provider, e.Err)
}

func (e *CalendarFetchError) Unwrap() error { return e.Err }

// UserEnumerationError is returned when the user directory cannot be listed.
type UserEnumerationError struct {
	PageToken string
	Err       error
}

func (e *UserEnumerationError) Error() string {
	return fmt.Sprintf("list users: %v", e.Err)
}

func (e *UserEnumerationError) Unwrap() error { return e.Err }

// PersistenceError is returned when a user document cannot be read or written.
type PersistenceError struct {
	UserID string
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
