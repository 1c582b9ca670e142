package domain

import "time"

// SyncWindow is how far ahead events are fetched.
const SyncWindow = 7 * 24 * time.Hour

// Event is a provider-native event object, stored as received.
type Event map[string]interface{}

// Window is the half-open [Start, End) range requested from a provider.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the sync window starting at now.
func NewWindow(now time.Time) Window {
	now = now.UTC()
	return Window{Start: now, End: now.Add(SyncWindow)}
}
