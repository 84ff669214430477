package config

import (
	"os"
	"time"
)

// Server captures process-level configuration for the operator console.
type Server struct {
	Addr        string
	Environment string

	// DatabaseURL selects the Postgres-backed collection when set; the
	// in-memory collection is used otherwise.
	DatabaseURL  string
	PollInterval time.Duration

	// MessageTTL controls how long transient operator status messages stay
	// visible before auto-dismissing.
	MessageTTL time.Duration

	JWTSigningKey      string
	SessionTTL         time.Duration
	OperatorUsername   string
	OperatorSecretHash string
	DeviceBinding      bool
}

var (
	defaultMessageTTL   = 3 * time.Second
	defaultSessionTTL   = 12 * time.Hour
	defaultPollInterval = 500 * time.Millisecond
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:               os.Getenv("VERIDESK_ADDR"),
		Environment:        os.Getenv("VERIDESK_ENV"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MessageTTL:         defaultMessageTTL,
		SessionTTL:         defaultSessionTTL,
		PollInterval:       defaultPollInterval,
		JWTSigningKey:      os.Getenv("JWT_SIGNING_KEY"),
		OperatorUsername:   os.Getenv("OPERATOR_USERNAME"),
		OperatorSecretHash: os.Getenv("OPERATOR_SECRET_HASH"),
		DeviceBinding:      os.Getenv("DEVICE_BINDING") == "true",
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.OperatorUsername == "" {
		cfg.OperatorUsername = "operator"
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	if v := os.Getenv("MESSAGE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MessageTTL = d
		}
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = d
		}
	}

	return cfg
}
