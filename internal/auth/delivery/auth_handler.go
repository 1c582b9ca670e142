package delivery

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	authdomain "calsync/internal/auth/domain"
	authdto "calsync/internal/auth/dto"
	"calsync/internal/auth/usecase"
	"calsync/internal/metrics"

	"github.com/gin-gonic/gin"
)

// callbackPath is the front-end route that receives the login result.
const callbackPath = "/oauth2callback-ms"

// Values of the res query parameter sent to the front end.
const (
	resultSuccess        = "success"
	resultNoRefreshToken = "no-refresh-token"
	resultError          = "error"
)

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	frontOrigin string
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, frontOrigin string) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		frontOrigin: frontOrigin,
	}
}

// Authorize redirects the browser to the Microsoft sign-in page.
func (h *AuthHandler) Authorize(c *gin.Context) {
	authURL, err := h.authUsecase.AuthURL()
	if err != nil {
		log.Printf("[MSAL] Failed to build authorize URL: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start authorization"})
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the authorization-code flow and hands the refresh token
// to the front end.
func (h *AuthHandler) Callback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		log.Printf("[MSAL] Authorization denied: %s %s", providerErr, c.Query("error_description"))
		metrics.OAuthCallbacks.WithLabelValues("provider_error").Inc()
		c.String(http.StatusOK, "Error: %s", providerErr)
		return
	}

	resp, err := h.authUsecase.ExchangeCode(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		if errors.Is(err, authdomain.ErrInvalidState) {
			log.Printf("[MSAL] Rejected callback: %v", err)
		} else {
			log.Printf("[MSAL] Error acquiring token by code: %v", err)
		}
		h.redirectResult(c, resultError, "")
		return
	}

	if resp.RefreshToken == "" {
		h.redirectResult(c, resultNoRefreshToken, "")
		return
	}
	h.redirectResult(c, resultSuccess, resp.RefreshToken)
}

// Refresh trades a refresh token for a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req authdto.RefreshTokenRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Printf("[MSAL] Invalid refresh request: %v", err)
		c.String(http.StatusInternalServerError, "Error refreshing token.")
		return
	}

	resp, err := h.authUsecase.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Printf("[MSAL] Error refreshing token: %v", err)
		c.String(http.StatusInternalServerError, "Error refreshing token.")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) redirectResult(c *gin.Context, result, refreshToken string) {
	metrics.OAuthCallbacks.WithLabelValues(result).Inc()

	params := url.Values{}
	params.Set("res", result)
	if refreshToken != "" {
		params.Set("sec", refreshToken)
	}
	c.Redirect(http.StatusFound, h.frontOrigin+callbackPath+"?"+params.Encode())
}
