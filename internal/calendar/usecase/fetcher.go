package usecase

import (
	"context"
	"fmt"
	"time"

	"calsync/internal/calendar/domain"
	"calsync/pkg/googlecal"
	"calsync/pkg/msgraph"
)

// CalendarFetcher retrieves upcoming events for the owner of an access token.
type CalendarFetcher interface {
	FetchEvents(ctx context.Context, provider domain.Provider, accessToken string) ([]domain.Event, error)
}

// EventSource lists a provider's events in a window.
type EventSource func(ctx context.Context, accessToken string, window domain.Window) ([]domain.Event, error)

// calendarFetcher implements CalendarFetcher over per-provider event sources
type calendarFetcher struct {
	sources map[domain.Provider]EventSource
	now     func() time.Time
	timeout time.Duration
}

// NewCalendarFetcher creates a fetcher. now defaults to time.Now.
func NewCalendarFetcher(google, microsoft EventSource, now func() time.Time, timeout time.Duration) CalendarFetcher {
	if now == nil {
		now = time.Now
	}
	return &calendarFetcher{
		sources: map[domain.Provider]EventSource{
			domain.ProviderGoogle:    google,
			domain.ProviderMicrosoft: microsoft,
		},
		now:     now,
		timeout: timeout,
	}
}

// FetchEvents returns the full event list for [now, now+7d) or an error, never both.
func (f *calendarFetcher) FetchEvents(ctx context.Context, provider domain.Provider, accessToken string) ([]domain.Event, error) {
	source := f.sources[provider]
	if source == nil {
		return nil, &domain.CalendarFetchError{Provider: provider, Err: fmt.Errorf("no event source for provider %q", provider)}
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	events, err := source(ctx, accessToken, domain.NewWindow(f.now()))
	if err != nil {
		return nil, &domain.CalendarFetchError{Provider: provider, StatusCode: fetchStatus(err), Err: err}
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

func fetchStatus(err error) int {
	if code := googlecal.StatusCode(err); code != 0 {
		return code
	}
	return msgraph.StatusCode(err)
}
