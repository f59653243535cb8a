package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. All values come from the
// environment so main stays lean.
type Config struct {
	Addr        string
	Environment string

	// Ledger node access.
	NodeURL      string
	NodeToken    string
	IndexerURL   string
	IndexerToken string

	// The managing application on the ledger. The authority address is derived
	// from AppID, not configured, so it cannot drift from the program that
	// holds the control roles.
	AppID        uint64
	AdminAddress string

	// Remote signer session.
	SignerURL     string
	SignerTimeout time.Duration

	ConfirmationRounds uint64
	QueryTimeout       time.Duration

	JWTSigningKey string
	TokenTTL      time.Duration

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
	AuditTopic   string
}

const defaultTokenTTL = 15 * time.Minute

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("ATTEST_ADDR", ":8080"),
		Environment:        envOr("ATTEST_ENV", "dev"),
		NodeURL:            os.Getenv("LEDGER_NODE_URL"),
		NodeToken:          os.Getenv("LEDGER_NODE_TOKEN"),
		IndexerURL:         os.Getenv("LEDGER_INDEXER_URL"),
		IndexerToken:       os.Getenv("LEDGER_INDEXER_TOKEN"),
		AdminAddress:       os.Getenv("AUTHORITY_ADMIN_ADDRESS"),
		SignerURL:          os.Getenv("SIGNER_URL"),
		SignerTimeout:      durationOr("SIGNER_TIMEOUT", 2*time.Minute),
		ConfirmationRounds: uintOr("CONFIRMATION_ROUNDS", 10),
		QueryTimeout:       durationOr("LEDGER_QUERY_TIMEOUT", 10*time.Second),
		JWTSigningKey:      os.Getenv("JWT_SIGNING_KEY"),
		TokenTTL:           durationOr("TOKEN_TTL", defaultTokenTTL),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		AuditTopic:         envOr("AUDIT_TOPIC", "attest.credential.lifecycle"),
	}

	if appID, err := strconv.ParseUint(os.Getenv("AUTHORITY_APP_ID"), 10, 64); err == nil {
		cfg.AppID = appID
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

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func uintOr(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// RedisConfig holds connection pool settings for the pending-transaction tracker.
type RedisConfig struct {
	URL           string
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// DefaultRedisConfig returns sensible defaults for production use.
func DefaultRedisConfig(url string) RedisConfig {
	return RedisConfig{
		URL:          url,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
