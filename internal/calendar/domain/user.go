package domain

// Provider identifies an external identity/calendar service.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
)

// Firebase Auth provider ids used to classify directory users.
const (
	GoogleIdentityProviderID    = "google.com"
	MicrosoftIdentityProviderID = "microsoft.com"
)

// CalendarField returns the user document field that holds the provider's cached events.
func (p Provider) CalendarField() string {
	switch p {
	case ProviderGoogle:
		return "google_calendars"
	case ProviderMicrosoft:
		return "outlook_calendars"
	default:
		return ""
	}
}

// User is a directory entry returned by the identity provider.
type User struct {
	UID         string
	Email       string
	ProviderIDs []string
}

// HasIdentityProvider reports whether the user signed in with the given provider id.
func (u User) HasIdentityProvider(providerID string) bool {
	for _, id := range u.ProviderIDs {
		if id == providerID {
			return true
		}
	}
	return false
}

// Linkage classifies a user by the identity providers attached to the account.
type Linkage string

const (
	LinkageNone      Linkage = "neither"
	LinkageGoogle    Linkage = "google"
	LinkageMicrosoft Linkage = "microsoft"
	LinkageBoth      Linkage = "both"
)

func (u User) Linkage() Linkage {
	g := u.HasIdentityProvider(GoogleIdentityProviderID)
	m := u.HasIdentityProvider(MicrosoftIdentityProviderID)
	switch {
	case g && m:
		return LinkageBoth
	case g:
		return LinkageGoogle
	case m:
		return LinkageMicrosoft
	default:
		return LinkageNone
	}
}

// Credential is a stored provider credential. FieldPath is the document path
// the refresh token lives at, so a rotated token is written back in place.
type Credential struct {
	RefreshToken string
	FieldPath    string
}

// UserDocument is the per-user document in the store.
type UserDocument struct {
	ID          string
	Email       string
	Credentials map[Provider]*Credential
}

// Credential returns the linked credential for a provider, or nil when the
// provider is not linked (missing or empty refresh token).
func (d *UserDocument) Credential(p Provider) *Credential {
	if d == nil || d.Credentials == nil {
		return nil
	}
	c := d.Credentials[p]
	if c == nil || c.RefreshToken == "" {
		return nil
	}
	return c
}
