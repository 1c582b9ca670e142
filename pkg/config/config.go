package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	FrontOrigin string

	AzureClientID     string
	AzureClientSecret string
	AzureTenantID     string
	AzureRedirectURI  string

	GoogleClientID     string
	GoogleClientSecret string

	FirebaseCredentials string
	FirebaseProjectID   string

	StateSecret string
	StateTTL    time.Duration

	SyncInterval       time.Duration
	SyncTrigger        string
	SyncWorkers        int
	SyncLockTTL        time.Duration
	ProviderTimeout    time.Duration
	PubSubSubscription string
	PubSubTopic        string
}

// DefaultStateSecret signs OAuth state when STATE_SECRET is unset.
const DefaultStateSecret = "change-me-state-secret"

// Sync trigger modes.
const (
	TriggerTicker = "ticker"
	TriggerPubSub = "pubsub"
	TriggerOff    = "off"
)

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		FrontOrigin: getEnv("FRONT_ORIGIN", "http://localhost:5173"),

		AzureClientID:     getEnv("AZURE_CLIENT_ID", ""),
		AzureClientSecret: getEnv("AZURE_CLIENT_SECRET", ""),
		AzureTenantID:     getEnv("AZURE_TENANT_ID", ""),
		AzureRedirectURI:  getEnv("AZURE_REDIRECT_URI", "http://localhost:8080/auth/callback"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),

		StateSecret: getEnv("STATE_SECRET", DefaultStateSecret),
		StateTTL:    getEnvDuration("STATE_TTL", 10*time.Minute),

		SyncInterval:       getEnvDuration("SYNC_INTERVAL", 24*time.Hour),
		SyncTrigger:        getEnv("SYNC_TRIGGER", TriggerTicker),
		SyncWorkers:        getEnvInt("SYNC_WORKERS", 1),
		SyncLockTTL:        getEnvDuration("SYNC_LOCK_TTL", 30*time.Minute),
		ProviderTimeout:    getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		PubSubSubscription: getEnv("PUBSUB_SUBSCRIPTION", "calendar-sync-tick"),
		PubSubTopic:        getEnv("PUBSUB_TOPIC", "calendar-sync"),
	}
}

// UsesDefaultStateSecret reports whether OAuth state is signed with the
// public built-in secret.
func (c *Config) UsesDefaultStateSecret() bool {
	return c.StateSecret == DefaultStateSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
