package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	authdomain "calsync/internal/auth/domain"
	authdto "calsync/internal/auth/dto"
	"calsync/internal/auth/repository"
	"calsync/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	oauthConfig *oauth2.Config
	states      repository.StateRepository
	stateSecret []byte
	stateTTL    time.Duration
	timeout     time.Duration
	now         func() time.Time
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(oauthConfig *oauth2.Config, states repository.StateRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		oauthConfig: oauthConfig,
		states:      states,
		stateSecret: []byte(cfg.StateSecret),
		stateTTL:    cfg.StateTTL,
		timeout:     cfg.ProviderTimeout,
		now:         time.Now,
	}
}

func (u *authUsecase) AuthURL() (string, error) {
	state, err := u.issueState()
	if err != nil {
		return "", err
	}
	return u.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query")), nil
}

func (u *authUsecase) ExchangeCode(ctx context.Context, code, state string) (*authdto.TokenResponse, error) {
	if err := u.redeemState(state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, authdomain.ErrMissingCode
	}

	resp, err := u.requestToken(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {u.oauthConfig.RedirectURL},
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return resp, nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, refreshToken string) (*authdto.TokenResponse, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}

	resp, err := u.requestToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, errors.New("refresh access token: token response has no access token")
	}
	return resp, nil
}

// requestToken posts a grant to the token endpoint and returns the response
// body as sent by the provider. Callers decide which fields they need.
func (u *authUsecase) requestToken(ctx context.Context, form url.Values) (*authdto.TokenResponse, error) {
	ctx, cancel := u.callContext(ctx)
	defer cancel()

	form.Set("client_id", u.oauthConfig.ClientID)
	form.Set("client_secret", u.oauthConfig.ClientSecret)
	if len(u.oauthConfig.Scopes) > 0 {
		form.Set("scope", strings.Join(u.oauthConfig.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.oauthConfig.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	// nil source returns the client carried by ctx under oauth2.HTTPClient
	httpResp, err := oauth2.NewClient(ctx, nil).Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		retrieveErr := &oauth2.RetrieveError{Response: httpResp, Body: body}
		var errBody struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			retrieveErr.ErrorCode = errBody.Error
			retrieveErr.ErrorDescription = errBody.ErrorDescription
		}
		return nil, retrieveErr
	}

	var resp authdto.TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &resp, nil
}

// issueState signs a state JWT and records its id as pending.
func (u *authUsecase) issueState() (string, error) {
	now := u.now()
	state := &authdomain.AuthState{
		ID:        uuid.New().String(),
		ExpiresAt: now.Add(u.stateTTL),
	}

	claims := jwt.RegisteredClaims{
		ID:        state.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(state.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.stateSecret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}

	if err := u.states.Save(state); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}
	return signed, nil
}

// redeemState checks the signature and expiry, then consumes the state id.
func (u *authUsecase) redeemState(state string) error {
	if state == "" {
		return authdomain.ErrInvalidState
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		return u.stateSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(u.now),
	)
	if err != nil || !token.Valid || claims.ID == "" {
		return fmt.Errorf("%w: %v", authdomain.ErrInvalidState, err)
	}

	ok, err := u.states.Consume(claims.ID, u.now())
	if err != nil {
		return fmt.Errorf("consume state: %w", err)
	}
	if !ok {
		return authdomain.ErrInvalidState
	}
	return nil
}

func (u *authUsecase) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.timeout > 0 {
		return context.WithTimeout(ctx, u.timeout)
	}
	return context.WithCancel(ctx)
}
