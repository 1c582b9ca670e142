package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	api "calsync/cmd/api"
	authRepo "calsync/internal/auth/repository"
	authUsecase "calsync/internal/auth/usecase"
	"calsync/internal/calendar/domain"
	calendarRepo "calsync/internal/calendar/repository"
	"calsync/internal/calendar/scheduler"
	calendarUsecase "calsync/internal/calendar/usecase"
	"calsync/pkg/config"
	"calsync/pkg/firebase"
	"calsync/pkg/googlecal"
	"calsync/pkg/msgraph"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.UsesDefaultStateSecret() {
		log.Printf("[WARN] STATE_SECRET not set, OAuth state is signed with the built-in default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Microsoft client config is shared by the broker and the sync job
	msOAuth := msgraph.OAuthConfig(cfg.AzureClientID, cfg.AzureClientSecret, cfg.AzureTenantID, cfg.AzureRedirectURI)

	if cfg.SyncTrigger != config.TriggerOff {
		stopSync := startSync(ctx, cfg, msOAuth)
		defer stopSync()
	} else {
		log.Printf("[WARN] SYNC_TRIGGER=off, calendar sync disabled")
	}

	// Initialize broker (dependency injection)
	stateRepo := authRepo.NewMemoryStateRepository()
	authUsecaseInstance := authUsecase.NewAuthUsecase(msOAuth, stateRepo, cfg)
	handler := api.NewHandler(authUsecaseInstance, cfg)

	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// startSync wires the sync job to its trigger and returns a cleanup func.
func startSync(ctx context.Context, cfg *config.Config, msOAuth *oauth2.Config) func() {
	fb, err := firebase.NewClient(ctx, cfg.FirebaseCredentials, cfg.FirebaseProjectID)
	if err != nil {
		log.Fatal("Failed to initialize Firebase:", err)
	}

	// Initialize repositories
	directory := calendarRepo.NewFirebaseDirectory(fb.Auth)
	userRepo := calendarRepo.NewFirestoreUserRepository(fb.Firestore)
	leaseRepo := calendarRepo.NewFirestoreLeaseRepository(fb.Firestore)

	// Initialize provider clients
	googleService := googlecal.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	graphClient := msgraph.NewClient(msgraph.DefaultBaseURL, nil)

	refresher := calendarUsecase.NewTokenRefresher(map[domain.Provider]*oauth2.Config{
		domain.ProviderGoogle:    googleService.OAuthConfig(),
		domain.ProviderMicrosoft: msOAuth,
	}, nil, cfg.ProviderTimeout)
	fetcher := calendarUsecase.NewCalendarFetcher(googleService.ListEvents, graphClient.CalendarView, nil, cfg.ProviderTimeout)

	syncUsecase := calendarUsecase.NewSyncUsecase(directory, userRepo, leaseRepo, refresher, fetcher, calendarUsecase.SyncOptions{
		Workers:     cfg.SyncWorkers,
		LeaseTTL:    cfg.SyncLockTTL,
		CallTimeout: cfg.ProviderTimeout,
	})

	// Pub/Sub is optional for the ticker: it only publishes run reports
	var (
		psClient  *pubsub.Client
		publisher *scheduler.TopicPublisher
	)
	if cfg.FirebaseProjectID != "" {
		var opts []option.ClientOption
		if cfg.FirebaseCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
		}
		psClient, err = pubsub.NewClient(ctx, cfg.FirebaseProjectID, opts...)
		if err != nil {
			log.Printf("[WARN] Failed to create pubsub client, run reports disabled: %v", err)
		} else if cfg.PubSubTopic != "" {
			publisher = scheduler.NewTopicPublisher(psClient, cfg.PubSubTopic)
		}
	}

	var reportPublisher scheduler.ReportPublisher
	if publisher != nil {
		reportPublisher = publisher
	}

	var stopTrigger func()
	switch cfg.SyncTrigger {
	case config.TriggerPubSub:
		if psClient == nil {
			log.Fatal("SYNC_TRIGGER=pubsub requires FIREBASE_PROJECT_ID and a working pubsub client")
		}
		trigger := scheduler.NewPubSubTrigger(psClient, cfg.PubSubSubscription, syncUsecase, reportPublisher)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := trigger.Start(ctx); err != nil {
				log.Printf("[PubSub] Sync trigger stopped: %v", err)
			}
		}()
		stopTrigger = func() { <-done }
	default:
		syncScheduler := scheduler.NewSyncScheduler(syncUsecase, reportPublisher, cfg.SyncInterval)
		syncScheduler.Start(ctx)
		stopTrigger = syncScheduler.Stop
	}

	return func() {
		stopTrigger()
		if publisher != nil {
			publisher.Stop()
		}
		if psClient != nil {
			_ = psClient.Close()
		}
		if err := fb.Close(); err != nil {
			log.Printf("[Firebase] Failed to close client: %v", err)
		}
	}
}
