package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidState = errors.New("invalid or expired oauth state")
	ErrMissingCode  = errors.New("authorization code missing")
)

// AuthState is an issued authorization request awaiting its callback.
type AuthState struct {
	ID        string
	ExpiresAt time.Time
}
