package usecase

import (
	"context"

	authdto "calsync/internal/auth/dto"
)

// AuthUsecase brokers the Microsoft authorization-code and refresh-token flows
type AuthUsecase interface {
	// AuthURL returns the authorize URL carrying a fresh single-use state.
	AuthURL() (string, error)
	// ExchangeCode redeems the state, then trades the code for tokens.
	ExchangeCode(ctx context.Context, code, state string) (*authdto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*authdto.TokenResponse, error)
}
