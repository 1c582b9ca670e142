package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"calsync/internal/calendar/domain"
	"calsync/pkg/msgraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCalendarFetcher_RequestWindow(t *testing.T) {
	now := time.Date(2026, 10, 18, 22, 15, 0, 0, time.FixedZone("CEST", 2*60*60))

	var googleWindow, msWindow domain.Window
	google := func(_ context.Context, token string, w domain.Window) ([]domain.Event, error) {
		googleWindow = w
		return []domain.Event{{"id": "g1"}, {"id": "g-outside", "start": map[string]interface{}{"dateTime": "2030-01-01T00:00:00Z"}}}, nil
	}
	microsoft := func(_ context.Context, token string, w domain.Window) ([]domain.Event, error) {
		msWindow = w
		return []domain.Event{{"id": "m1"}}, nil
	}

	fetcher := NewCalendarFetcher(google, microsoft, fixedClock(now), time.Second)

	events, err := fetcher.FetchEvents(context.Background(), domain.ProviderGoogle, "g-token")
	require.NoError(t, err)
	// provider results are passed through without client-side filtering
	assert.Len(t, events, 2)

	_, err = fetcher.FetchEvents(context.Background(), domain.ProviderMicrosoft, "m-token")
	require.NoError(t, err)

	for _, w := range []domain.Window{googleWindow, msWindow} {
		assert.True(t, w.Start.Equal(now))
		assert.Equal(t, time.UTC, w.Start.Location())
		assert.Equal(t, 7*24*time.Hour, w.End.Sub(w.Start))
	}
}

func TestCalendarFetcher_Errors(t *testing.T) {
	failing := func(_ context.Context, _ string, _ domain.Window) ([]domain.Event, error) {
		return []domain.Event{{"id": "partial"}}, msgraph.WrapError(http.StatusUnauthorized)
	}
	blocking := func(ctx context.Context, _ string, _ domain.Window) ([]domain.Event, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	fetcher := NewCalendarFetcher(blocking, failing, nil, 20*time.Millisecond)

	events, err := fetcher.FetchEvents(context.Background(), domain.ProviderMicrosoft, "expired")
	require.Error(t, err)
	assert.Nil(t, events, "a failed fetch must not return partial results")
	var fetchErr *domain.CalendarFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, domain.ProviderMicrosoft, fetchErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, fetchErr.StatusCode)

	events, err = fetcher.FetchEvents(context.Background(), domain.ProviderGoogle, "token")
	require.Error(t, err)
	assert.Nil(t, events)
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, domain.ProviderGoogle, fetchErr.Provider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalendarFetcher_EmptyResult(t *testing.T) {
	empty := func(_ context.Context, _ string, _ domain.Window) ([]domain.Event, error) {
		return nil, nil
	}

	events, err := NewCalendarFetcher(empty, empty, nil, 0).FetchEvents(context.Background(), domain.ProviderGoogle, "t")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestCalendarFetcher_UnknownProvider(t *testing.T) {
	_, err := NewCalendarFetcher(nil, nil, nil, 0).FetchEvents(context.Background(), domain.Provider("yahoo"), "t")

	var fetchErr *domain.CalendarFetchError
	assert.True(t, errors.As(err, &fetchErr))
}
