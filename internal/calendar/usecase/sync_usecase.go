package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"calsync/internal/calendar/domain"
	"calsync/internal/calendar/repository"
	"calsync/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// UserPageSize is the directory batch size used for enumeration.
	UserPageSize = 1000

	syncLeaseName = "calendar-sync"
)

// syncedProviders is the order providers are processed in for each user.
var syncedProviders = []domain.Provider{domain.ProviderGoogle, domain.ProviderMicrosoft}

// SyncUsecase runs one calendar sync over every user in the directory.
type SyncUsecase interface {
	// Run never fails because of an individual user or provider; the only
	// errors are a held or unobtainable run lease.
	Run(ctx context.Context) (*domain.RunReport, error)
}

// SyncOptions tunes a sync run.
type SyncOptions struct {
	// Workers is how many users are processed at once. Values below 1 mean 1.
	Workers int
	// LeaseTTL bounds how long a crashed run can block the next one. A live
	// run renews its lease every LeaseTTL/3.
	LeaseTTL time.Duration
	// CallTimeout applies to each document read and write.
	CallTimeout time.Duration
	Now         func() time.Time
}

// syncUsecase implements SyncUsecase
type syncUsecase struct {
	directory repository.UserDirectory
	users     repository.UserRepository
	leases    repository.LeaseRepository
	refresher TokenRefresher
	fetcher   CalendarFetcher

	workers     int
	leaseTTL    time.Duration
	callTimeout time.Duration
	holderID    string
	now         func() time.Time
}

// NewSyncUsecase creates a new instance of syncUsecase. leases may be nil to
// run without the overlap guard.
func NewSyncUsecase(
	directory repository.UserDirectory,
	users repository.UserRepository,
	leases repository.LeaseRepository,
	refresher TokenRefresher,
	fetcher CalendarFetcher,
	opts SyncOptions,
) SyncUsecase {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &syncUsecase{
		directory:   directory,
		users:       users,
		leases:      leases,
		refresher:   refresher,
		fetcher:     fetcher,
		workers:     opts.Workers,
		leaseTTL:    opts.LeaseTTL,
		callTimeout: opts.CallTimeout,
		holderID:    uuid.NewString(),
		now:         opts.Now,
	}
}

func (u *syncUsecase) Run(ctx context.Context) (*domain.RunReport, error) {
	if u.leases != nil {
		if err := u.leases.Acquire(ctx, syncLeaseName, u.holderID, u.leaseTTL); err != nil {
			metrics.SyncRuns.WithLabelValues("skipped").Inc()
			if errors.Is(err, domain.ErrRunInProgress) {
				log.Printf("[Sync] Another run holds the lease, skipping this cycle")
				return nil, err
			}
			log.Printf("[Sync] Failed to acquire run lease: %v", err)
			return nil, fmt.Errorf("acquire run lease: %w", err)
		}
		defer u.releaseLease()

		stopRenewal := u.renewLease(ctx)
		defer stopRenewal()
	}

	started := u.now()
	report := domain.NewRunReport(started)
	log.Printf("[Sync] Run started (workers: %d)", u.workers)

	var g errgroup.Group
	g.SetLimit(u.workers)

	log.Printf("[Sync] Enumerating users")
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("[Sync] Run cancelled during enumeration: %v", err)
			report.EnumerationFailed = true
			break
		}

		users, next, err := u.directory.ListUsers(ctx, UserPageSize, pageToken)
		if err != nil {
			enumErr := &domain.UserEnumerationError{PageToken: pageToken, Err: err}
			log.Printf("[Sync] %v", enumErr)
			report.EnumerationFailed = true
			break
		}

		for _, user := range users {
			linkage := user.Linkage()
			report.AddUser(linkage)
			metrics.UsersSeen.WithLabelValues(string(linkage)).Inc()

			g.Go(func() error {
				u.syncUser(ctx, user, report)
				return nil
			})
		}

		if next == "" {
			break
		}
		pageToken = next
	}

	_ = g.Wait()

	report.FinishedAt = u.now()
	metrics.SyncRuns.WithLabelValues("completed").Inc()
	metrics.RunDuration.Observe(report.FinishedAt.Sub(started).Seconds())

	log.Printf("[Sync] Run finished: %d users (google: %d, microsoft: %d, both: %d), google updated %d failed %d, outlook updated %d failed %d, unreadable %d",
		report.Users,
		report.Linkage[domain.LinkageGoogle], report.Linkage[domain.LinkageMicrosoft], report.Linkage[domain.LinkageBoth],
		report.Updated[domain.ProviderGoogle], report.Failed[domain.ProviderGoogle],
		report.Updated[domain.ProviderMicrosoft], report.Failed[domain.ProviderMicrosoft],
		report.UnreadableDocuments)
	return report, nil
}

// renewLease re-acquires the lease every TTL/3 until the returned func is
// called. The returned func waits for an in-flight renewal.
func (u *syncUsecase) renewLease(ctx context.Context) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(u.leaseTTL / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				renewCtx, cancel := u.callContext(ctx)
				err := u.leases.Acquire(renewCtx, syncLeaseName, u.holderID, u.leaseTTL)
				cancel()
				if err != nil {
					log.Printf("[Sync] Failed to renew run lease: %v", err)
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

func (u *syncUsecase) releaseLease() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := u.leases.Release(ctx, syncLeaseName, u.holderID); err != nil {
		log.Printf("[Sync] Failed to release run lease: %v", err)
	}
}

// syncUser processes every linked provider for one user. Failures are
// logged and counted, never returned.
func (u *syncUsecase) syncUser(ctx context.Context, user domain.User, report *domain.RunReport) {
	readCtx, cancel := u.callContext(ctx)
	doc, err := u.users.FindByID(readCtx, user.UID)
	cancel()
	if err != nil {
		log.Printf("[Sync] Skipping user %s: %v", user.UID, err)
		report.AddUnreadable()
		metrics.ProviderFailures.WithLabelValues("none", "persistence").Inc()
		return
	}

	for _, provider := range syncedProviders {
		cred := doc.Credential(provider)
		if cred == nil {
			continue
		}

		if err := u.syncProvider(ctx, user.UID, provider, cred); err != nil {
			log.Printf("[Sync] %s calendar not updated for %s (%s): %v", provider, user.UID, doc.Email, err)
			report.AddFailed(provider)
			metrics.ProviderSyncs.WithLabelValues(string(provider), "failed").Inc()
			metrics.ProviderFailures.WithLabelValues(string(provider), errorKind(err)).Inc()
			continue
		}

		log.Printf("[Sync] %s calendar updated for %s (%s)", provider, user.UID, doc.Email)
		report.AddUpdated(provider)
		metrics.ProviderSyncs.WithLabelValues(string(provider), "updated").Inc()
	}
}

// syncProvider runs Refreshing -> Fetching -> Persisting for one user and provider.
func (u *syncUsecase) syncProvider(ctx context.Context, userID string, provider domain.Provider, cred *domain.Credential) error {
	token, err := u.refresher.Refresh(ctx, provider, cred)
	if err != nil {
		return err
	}

	if token.RefreshToken != "" && token.RefreshToken != cred.RefreshToken {
		writeCtx, cancel := u.callContext(ctx)
		err := u.users.UpdateRefreshToken(writeCtx, userID, cred, token.RefreshToken)
		cancel()
		if err != nil {
			// the old token may still work next cycle; keep going with this one
			log.Printf("[Sync] Failed to store rotated %s refresh token for %s: %v", provider, userID, err)
		}
	}

	events, err := u.fetcher.FetchEvents(ctx, provider, token.AccessToken)
	if err != nil {
		return err
	}

	writeCtx, cancel := u.callContext(ctx)
	defer cancel()
	return u.users.UpdateCalendar(writeCtx, userID, provider, events)
}

func (u *syncUsecase) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.callTimeout > 0 {
		return context.WithTimeout(ctx, u.callTimeout)
	}
	return context.WithCancel(ctx)
}

func errorKind(err error) string {
	var (
		refreshErr *domain.AuthRefreshError
		fetchErr   *domain.CalendarFetchError
		persistErr *domain.PersistenceError
	)
	switch {
	case errors.As(err, &refreshErr):
		return "auth_refresh"
	case errors.As(err, &fetchErr):
		return "calendar_fetch"
	case errors.As(err, &persistErr):
		return "persistence"
	default:
		return "other"
	}
}
