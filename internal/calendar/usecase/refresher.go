package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"calsync/internal/calendar/domain"

	"golang.org/x/oauth2"
)

// TokenRefresher exchanges a stored refresh token for a fresh access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, provider domain.Provider, cred *domain.Credential) (*oauth2.Token, error)
}

// tokenRefresher implements TokenRefresher with one oauth2 client config per provider
type tokenRefresher struct {
	configs    map[domain.Provider]*oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
}

// NewTokenRefresher creates a refresher. httpClient may be nil.
func NewTokenRefresher(configs map[domain.Provider]*oauth2.Config, httpClient *http.Client, timeout time.Duration) TokenRefresher {
	return &tokenRefresher{
		configs:    configs,
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Refresh always hits the token endpoint; access tokens are never cached
// between sync runs.
func (r *tokenRefresher) Refresh(ctx context.Context, provider domain.Provider, cred *domain.Credential) (*oauth2.Token, error) {
	cfg, ok := r.configs[provider]
	if !ok {
		return nil, &domain.AuthRefreshError{Provider: provider, Err: fmt.Errorf("no oauth config for provider %q", provider)}
	}
	if cred == nil || cred.RefreshToken == "" {
		return nil, &domain.AuthRefreshError{Provider: provider, Err: domain.ErrNoRefreshToken}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}

	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return nil, &domain.AuthRefreshError{Provider: provider, StatusCode: retrieveStatus(err), Err: err}
	}
	if token.AccessToken == "" {
		return nil, &domain.AuthRefreshError{Provider: provider, Err: errors.New("token response has no access token")}
	}
	return token, nil
}

func retrieveStatus(err error) int {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode
	}
	return 0
}
