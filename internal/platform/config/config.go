// Package config builds typed configuration from the environment so main
// stays lean. Every section is a concrete struct validated at load time;
// nothing downstream sees raw env vars or untyped maps.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "vidgate/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Postgres captures the durable store connection.
type Postgres struct {
	URL string
}

// Redis captures the shared TTL store used for delegated-authorization state.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Provider captures the delegated authorization provider endpoints and client
// credentials. All calls to the provider are bounded by Timeout.
type Provider struct {
	AuthorizeURL string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
}

// Proof captures access-proof signing parameters. TTL is fixed at one hour by
// the entitlement model; it is configuration only so tests can shrink it.
type Proof struct {
	SigningKey string
	TTL        time.Duration
}

// Quota captures playback quota defaults.
type Quota struct {
	DefaultMaxViews int
}

// Audit captures the audit stream sink.
type Audit struct {
	KafkaBrokers []string
	Topic        string
}

// Config is the root configuration for the service.
type Config struct {
	Server       Server
	Postgres     Postgres
	Redis        Redis
	Provider     Provider
	Proof        Proof
	Quota        Quota
	Audit        Audit
	MasterSecret string
}

// FromEnv builds a Config from environment variables and validates it.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: Server{
			Addr:            envOr("VIDGATE_ADDR", ":8080"),
			ShutdownTimeout: envDuration("VIDGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			URL: os.Getenv("VIDGATE_POSTGRES_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("VIDGATE_REDIS_URL"),
			PoolSize:     envInt("VIDGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("VIDGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("VIDGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("VIDGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("VIDGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Provider: Provider{
			AuthorizeURL: os.Getenv("VIDGATE_PROVIDER_AUTHORIZE_URL"),
			TokenURL:     os.Getenv("VIDGATE_PROVIDER_TOKEN_URL"),
			ClientID:     os.Getenv("VIDGATE_PROVIDER_CLIENT_ID"),
			ClientSecret: os.Getenv("VIDGATE_PROVIDER_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("VIDGATE_PROVIDER_REDIRECT_URL"),
			Timeout:      envDuration("VIDGATE_PROVIDER_TIMEOUT", 10*time.Second),
		},
		Proof: Proof{
			SigningKey: os.Getenv("VIDGATE_PROOF_SIGNING_KEY"),
			TTL:        envDuration("VIDGATE_PROOF_TTL", time.Hour),
		},
		Quota: Quota{
			DefaultMaxViews: envInt("VIDGATE_QUOTA_MAX_VIEWS", 3),
		},
		Audit: Audit{
			KafkaBrokers: platformstrings.DedupeAndTrim(strings.Split(os.Getenv("VIDGATE_KAFKA_BROKERS"), ",")),
			Topic:        envOr("VIDGATE_AUDIT_TOPIC", "vidgate.audit"),
		},
		MasterSecret: os.Getenv("VIDGATE_MASTER_SECRET"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would fail at first use. Optional
// backends (Redis, Kafka) may be absent; required secrets may not.
func (c *Config) Validate() error {
	if c.Proof.SigningKey == "" {
		return fmt.Errorf("config: VIDGATE_PROOF_SIGNING_KEY is required")
	}
	if c.MasterSecret == "" {
		return fmt.Errorf("config: VIDGATE_MASTER_SECRET is required")
	}
	if c.Proof.TTL <= 0 {
		return fmt.Errorf("config: proof TTL must be positive, got %s", c.Proof.TTL)
	}
	if c.Quota.DefaultMaxViews <= 0 {
		return fmt.Errorf("config: default max views must be positive, got %d", c.Quota.DefaultMaxViews)
	}
	if c.Provider.TokenURL != "" && c.Provider.ClientID == "" {
		return fmt.Errorf("config: provider token URL set without client ID")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
