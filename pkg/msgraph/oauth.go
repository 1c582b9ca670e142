package msgraph

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Scopes requested for calendar access. offline_access makes the identity
// platform issue a refresh token.
var Scopes = []string{"Calendars.ReadWrite", "offline_access"}

// OAuthConfig returns the authorization-code client for the given tenant.
// An empty tenant uses the multi-tenant "common" endpoint.
func OAuthConfig(clientID, clientSecret, tenantID, redirectURL string) *oauth2.Config {
	endpoint := microsoft.AzureADEndpoint(tenantID)
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
	}
}
