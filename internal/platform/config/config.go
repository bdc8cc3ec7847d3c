package config

import (
	"os"
	"time"
)

// Server captures the full service configuration assembled from the
// environment so main stays lean.
type Server struct {
	Addr        string
	Environment string

	// Persistence. Empty DatabaseURL selects the in-memory trip store.
	DatabaseURL string

	// Stats cache. Empty RedisURL disables caching (stats recomputed per query).
	RedisURL      string
	StatsCacheTTL time.Duration

	// Trip event stream. Empty KafkaBrokers disables event publishing.
	KafkaBrokers string
	EventsTopic  string

	// Ledger gateway. Empty LedgerAPIURL selects the in-memory ledger.
	LedgerAPIURL    string
	LedgerAPIKey    string
	TokenID         string
	TreasuryAccount string

	// Credentialing authority. Empty CredentialAPIURL selects the in-memory issuer.
	CredentialAPIURL string
	CredentialAPIKey string
	PolicyID         string

	// Wallet sessions.
	JWTSigningKey string
	SessionTTL    time.Duration

	ExternalCallTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:                envOr("GREENHOP_ADDR", ":3001"),
		Environment:         envOr("GREENHOP_ENV", "development"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		StatsCacheTTL:       envDurationOr("STATS_CACHE_TTL", 5*time.Minute),
		KafkaBrokers:        os.Getenv("KAFKA_BROKERS"),
		EventsTopic:         envOr("TRIP_EVENTS_TOPIC", "greenhop.trip.events"),
		LedgerAPIURL:        os.Getenv("LEDGER_API_URL"),
		LedgerAPIKey:        os.Getenv("LEDGER_API_KEY"),
		TokenID:             envOr("GREEN_TOKEN_ID", "0.0.0"),
		TreasuryAccount:     envOr("LEDGER_TREASURY_ACCOUNT", "0.0.2"),
		CredentialAPIURL:    os.Getenv("CREDENTIAL_API_URL"),
		CredentialAPIKey:    os.Getenv("CREDENTIAL_API_KEY"),
		PolicyID:            os.Getenv("CREDENTIAL_POLICY_ID"),
		JWTSigningKey:       os.Getenv("JWT_SIGNING_KEY"),
		SessionTTL:          envDurationOr("SESSION_TTL", 24*time.Hour),
		ExternalCallTimeout: envDurationOr("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
