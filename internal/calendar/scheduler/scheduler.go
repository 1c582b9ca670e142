package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"calsync/internal/calendar/domain"
	"calsync/internal/calendar/usecase"
)

// ReportPublisher announces the report of a finished sync run.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *domain.RunReport) error
}

// SyncScheduler runs the calendar sync on a fixed interval
type SyncScheduler struct {
	syncUsecase usecase.SyncUsecase
	publisher   ReportPublisher
	interval    time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
}

// NewSyncScheduler creates a new scheduler. publisher may be nil.
func NewSyncScheduler(syncUsecase usecase.SyncUsecase, publisher ReportPublisher, interval time.Duration) *SyncScheduler {
	return &SyncScheduler{
		syncUsecase: syncUsecase,
		publisher:   publisher,
		interval:    interval,
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins the scheduler loop. The first run happens one interval after
// Start; a run in progress is cancelled when ctx is done.
func (s *SyncScheduler) Start(ctx context.Context) {
	log.Printf("[Scheduler] Starting calendar sync scheduler (interval: %s)", s.interval)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runSync(ctx, s.syncUsecase, s.publisher, "ticker")
			case <-s.stopChan:
				log.Println("[Scheduler] Scheduler stopped")
				return
			case <-ctx.Done():
				log.Println("[Scheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a run in progress to return.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

// runSync performs one run and publishes its report. Errors are logged only;
// the next trigger tries again.
func runSync(ctx context.Context, syncUsecase usecase.SyncUsecase, publisher ReportPublisher, source string) {
	log.Printf("[Scheduler] Sync triggered by %s", source)

	report, err := syncUsecase.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			return
		}
		log.Printf("[Scheduler] Sync run failed: %v", err)
		return
	}

	if publisher == nil || report == nil {
		return
	}
	if err := publisher.PublishReport(ctx, report); err != nil {
		log.Printf("[Scheduler] Failed to publish run report: %v", err)
	}
}
