package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns counts sync runs by outcome (completed, skipped).
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calsync_runs_total",
			Help: "The total number of calendar sync runs.",
		},
		[]string{"outcome"},
	)

	// ProviderSyncs counts per user+provider sync attempts by outcome.
	ProviderSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calsync_provider_syncs_total",
			Help: "The total number of per-user provider syncs.",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderFailures counts failures by provider and error kind.
	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calsync_provider_failures_total",
			Help: "The total number of provider failures by error kind.",
		},
		[]string{"provider", "kind"},
	)

	// UsersSeen counts enumerated directory users by linkage.
	UsersSeen = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calsync_users_seen_total",
			Help: "The total number of directory users enumerated.",
		},
		[]string{"linkage"},
	)

	// RunDuration is a histogram of sync run wall time.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "calsync_run_duration_seconds",
			Help:    "A histogram of calendar sync run duration.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	// OAuthCallbacks counts broker callback results by the res indicator.
	OAuthCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calsync_oauth_callbacks_total",
			Help: "The total number of OAuth callbacks handled.",
		},
		[]string{"result"},
	)
)
