package googlecal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"calsync/internal/calendar/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const primaryCalendarID = "primary"

type Service struct {
	clientID     string
	clientSecret string
	// endpoint overrides the Calendar API base URL; empty uses the default.
	endpoint   string
	httpClient *http.Client
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// WithEndpoint points the service at a different Calendar API base URL.
func (s *Service) WithEndpoint(endpoint string) *Service {
	s.endpoint = endpoint
	return s
}

// WithHTTPClient sets the base transport used under the bearer token.
func (s *Service) WithHTTPClient(client *http.Client) *Service {
	s.httpClient = client
	return s
}

// OAuthConfig returns the client configuration used to refresh Google tokens.
func (s *Service) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarReadonlyScope},
	}
}

// GetCalendarService creates a Calendar service authorized with the user's access token.
func (s *Service) GetCalendarService(ctx context.Context, accessToken string) (*calendar.Service, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})

	base := s.httpClient
	if base == nil {
		base = http.DefaultClient
	}
	client := &http.Client{
		Transport: &oauth2.Transport{Source: tokenSource, Base: base.Transport},
		Timeout:   base.Timeout,
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return srv, nil
}

// ListEvents retrieves single (expanded) events in the window from the primary
// calendar, ordered by start time. Only the first page is returned.
func (s *Service) ListEvents(ctx context.Context, accessToken string, window domain.Window) ([]domain.Event, error) {
	srv, err := s.GetCalendarService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Events.List(primaryCalendarID).
		TimeMin(window.Start.Format(time.RFC3339)).
		TimeMax(window.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events: %w", err)
	}

	events := make([]domain.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		event, err := toEvent(item)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// StatusCode extracts the HTTP status from a Google API error, or 0.
func StatusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// toEvent keeps the event exactly as it appears on the wire.
func toEvent(item *calendar.Event) (domain.Event, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", item.Id, err)
	}
	var event domain.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", item.Id, err)
	}
	return event, nil
}
