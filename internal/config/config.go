// Package config loads the application configuration from environment
// variables. Every knob has a default so the service starts with no
// environment at all; validation rejects values that would leave the
// resilience core in a nonsensical state.
package config

import (
	"fmt"
	"time"

	pkgconfig "careerforge/pkg/config"
)

// DefaultServices lists the mediated subsystems tracked out of the box.
var DefaultServices = []string{
	"conversation",
	"rewriter",
	"matcher",
	"scorer",
	"versioning",
	"cache",
}

// Config holds the full application configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig

	// Breaker configures per-service circuit breakers.
	Breaker BreakerConfig

	// Services are the subsystems registered at startup.
	// Default: DefaultServices
	Services []string

	// Probe configures the periodic health check cycle.
	Probe ProbeConfig

	// Notifier configures session failure notifications.
	Notifier NotifierConfig

	// FallbackFile is an optional YAML catalog of static fallback values.
	// Empty means only code-registered fallbacks are used.
	FallbackFile string

	// DatabaseURL is the Postgres DSN for the error audit store.
	// Empty means audit records go to the structured log instead.
	DatabaseURL string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port the API listens on. Default: 8080
	Port int

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration

	// AdminRatePerSecond limits admin endpoint calls. Default: 5
	AdminRatePerSecond float64

	// AdminBurst is the admin rate limiter burst. Default: 10
	AdminBurst int
}

// BreakerConfig holds circuit breaker settings shared by all services.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens a
	// breaker. Default: 5
	FailureThreshold uint32

	// Cooldown is how long an open breaker rejects calls before allowing
	// a probe. Default: 300s
	Cooldown time.Duration
}

// ProbeConfig holds health check cycle settings.
type ProbeConfig struct {
	// Schedule is the cron spec for the probe cycle. Default: "@every 30s"
	Schedule string

	// Timeout bounds each individual probe. Default: 5s
	Timeout time.Duration

	// URLs maps subsystem name to its health endpoint. Subsystems without
	// an entry get a static always-healthy probe.
	URLs map[string]string
}

// NotifierConfig holds session notification settings.
type NotifierConfig struct {
	// Enabled turns webhook notifications on. Default: false
	Enabled bool

	// WebhookURL is the session notification endpoint.
	WebhookURL string

	// Timeout is the HTTP timeout for webhook calls. Default: 10s
	Timeout time.Duration
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               pkgconfig.GetEnvInt("PORT", 8080),
			ShutdownTimeout:    pkgconfig.GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			AdminRatePerSecond: float64(pkgconfig.GetEnvInt("ADMIN_RATE_PER_SECOND", 5)),
			AdminBurst:         pkgconfig.GetEnvInt("ADMIN_RATE_BURST", 10),
		},
		Breaker: BreakerConfig{
			FailureThreshold: pkgconfig.GetEnvUint32("BREAKER_FAILURE_THRESHOLD", 5),
			Cooldown:         pkgconfig.GetEnvDuration("BREAKER_COOLDOWN", 300*time.Second),
		},
		Services: pkgconfig.GetEnvStringList("SERVICES", DefaultServices),
		Probe: ProbeConfig{
			Schedule: pkgconfig.GetEnvString("PROBE_SCHEDULE", "@every 30s"),
			Timeout:  pkgconfig.GetEnvDuration("PROBE_TIMEOUT", 5*time.Second),
			URLs:     pkgconfig.GetEnvStringMap("PROBE_URLS", nil),
		},
		Notifier: NotifierConfig{
			Enabled:    pkgconfig.GetEnvBool("NOTIFIER_ENABLED", false),
			WebhookURL: pkgconfig.GetEnvString("NOTIFIER_WEBHOOK_URL", ""),
			Timeout:    pkgconfig.GetEnvDuration("NOTIFIER_TIMEOUT", 10*time.Second),
		},
		FallbackFile: pkgconfig.GetEnvString("FALLBACK_FILE", ""),
		DatabaseURL:  pkgconfig.GetEnvString("DATABASE_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration correctness.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	if c.Server.AdminRatePerSecond <= 0 {
		return fmt.Errorf("ADMIN_RATE_PER_SECOND must be positive")
	}

	if c.Server.AdminBurst < 1 {
		return fmt.Errorf("ADMIN_RATE_BURST must be at least 1")
	}

	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Breaker.Cooldown); err != nil {
		return fmt.Errorf("BREAKER_COOLDOWN: %w", err)
	}

	if len(c.Services) == 0 {
		return fmt.Errorf("SERVICES cannot be empty")
	}

	if c.Probe.Schedule == "" {
		return fmt.Errorf("PROBE_SCHEDULE cannot be empty")
	}

	if err := pkgconfig.ValidateDurationRange(c.Probe.Timeout, 100*time.Millisecond, time.Minute); err != nil {
		return fmt.Errorf("PROBE_TIMEOUT: %w", err)
	}

	for name, url := range c.Probe.URLs {
		if url == "" {
			return fmt.Errorf("PROBE_URLS entry for %q has empty URL", name)
		}
	}

	if c.Notifier.Enabled {
		if c.Notifier.WebhookURL == "" {
			return fmt.Errorf("NOTIFIER_WEBHOOK_URL is required when NOTIFIER_ENABLED is true")
		}
		if err := pkgconfig.ValidatePositiveDuration(c.Notifier.Timeout); err != nil {
			return fmt.Errorf("NOTIFIER_TIMEOUT: %w", err)
		}
	}

	return nil
}
