package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"calsync/internal/calendar/domain"
)

// Microsoft Graph API base URL.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Client reads calendars from Microsoft Graph.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(defaultRequestsPerSecond, defaultBurstSize),
	}
}

type calendarViewResponse struct {
	Value    []domain.Event `json:"value"`
	NextLink string         `json:"@odata.nextLink,omitempty"`
}

// CalendarView returns the events of the signed-in user's default calendar
// occurring in the window. Only the first page is returned, in provider order.
func (c *Client) CalendarView(ctx context.Context, accessToken string, window domain.Window) ([]domain.Event, error) {
	params := url.Values{}
	params.Set("startDateTime", window.Start.Format(time.RFC3339))
	params.Set("endDateTime", window.End.Format(time.RFC3339))
	endpoint := c.baseURL + "/me/calendarview?" + params.Encode()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar view: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.rateLimiter.RecordRateLimit(resp.Header.Get("Retry-After"))
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("calendar view request failed with status %d: %w",
			resp.StatusCode, WrapError(resp.StatusCode))
	}

	var view calendarViewResponse
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode calendar view: %w", err)
	}
	if view.Value == nil {
		view.Value = []domain.Event{}
	}
	return view.Value, nil
}
