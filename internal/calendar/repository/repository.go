package repository

import (
	"context"
	"time"

	"calsync/internal/calendar/domain"
)

// UserDirectory enumerates users known to the identity provider.
type UserDirectory interface {
	// ListUsers returns one page of users and the token for the next page.
	// An empty token means the enumeration is complete.
	ListUsers(ctx context.Context, pageSize int, pageToken string) ([]domain.User, string, error)
}

// UserRepository reads and writes per-user documents.
type UserRepository interface {
	// FindByID loads the user's document. Missing or malformed documents
	// return a *domain.PersistenceError.
	FindByID(ctx context.Context, userID string) (*domain.UserDocument, error)

	// UpdateCalendar overwrites the provider's calendar field with events.
	UpdateCalendar(ctx context.Context, userID string, provider domain.Provider, events []domain.Event) error

	// UpdateRefreshToken stores a rotated refresh token in place of the old one.
	// An empty token is ignored.
	UpdateRefreshToken(ctx context.Context, userID string, cred *domain.Credential, refreshToken string) error
}

// LeaseRepository guards against overlapping sync runs.
type LeaseRepository interface {
	// Acquire takes the named lease for holder until ttl elapses.
	// Returns domain.ErrRunInProgress when another holder has a live lease.
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) error

	// Release gives the lease up if holder still owns it.
	Release(ctx context.Context, name, holder string) error
}
