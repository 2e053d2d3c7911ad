package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config holds the dispute service configuration.
type Config struct {
	Environment  string
	ListenAddr   string
	DatabaseURL  string
	DocumentsDB  string
	RedisAddr    string
	TLSCertFile  string
	TLSKeyFile   string
	IPAllowlist  []string
	MaxBodyBytes int64

	RateLimitCapacity int
	RateLimitPerSec   float64
}

// Load reads configuration from environment variables. Development may run
// fully in memory; production and staging require the durable stores.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:       os.Getenv("APP_ENV"),
		ListenAddr:        getenv("API_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DocumentsDB:       os.Getenv("DOCUMENTS_DB_PATH"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		TLSCertFile:       os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:        os.Getenv("TLS_KEY_FILE"),
		MaxBodyBytes:      getenvInt64("API_MAX_BODY_BYTES", 1<<20),
		RateLimitCapacity: int(getenvInt64("RATE_LIMIT_CAPACITY", 20)),
		RateLimitPerSec:   getenvFloat("RATE_LIMIT_PER_SEC", 10),
	}

	if raw := os.Getenv("API_IP_ALLOWLIST"); raw != "" {
		cfg.IPAllowlist = strings.Split(raw, ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete for its environment.
func (c *Config) Validate() error {
	var missing []string

	if c.Environment == "" {
		missing = append(missing, "APP_ENV")
	}

	if c.Environment == "production" || c.Environment == "staging" {
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.DocumentsDB == "" {
			missing = append(missing, "DOCUMENTS_DB_PATH")
		}
	}

	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	if c.MaxBodyBytes <= 0 {
		return errors.New("API_MAX_BODY_BYTES must be positive")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// TLS reports whether the listener should serve TLS.
func (c *Config) TLS() bool {
	return c.TLSCertFile != ""
}

// InMemory reports whether the service should run on the in-memory stores.
func (c *Config) InMemory() bool {
	return c.DatabaseURL == ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
