package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, uint32(5), cfg.Breaker.FailureThreshold)
	assert.Equal(t, 300*time.Second, cfg.Breaker.Cooldown)
	assert.Equal(t, DefaultServices, cfg.Services)
	assert.Equal(t, "@every 30s", cfg.Probe.Schedule)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
	assert.False(t, cfg.Notifier.Enabled)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "3")
	t.Setenv("BREAKER_COOLDOWN", "30s")
	t.Setenv("SERVICES", "matcher, scorer")
	t.Setenv("PROBE_SCHEDULE", "@every 10s")
	t.Setenv("PROBE_URLS", "matcher=http://matcher:8081/healthz,scorer=http://scorer:8082/healthz")
	t.Setenv("NOTIFIER_ENABLED", "true")
	t.Setenv("NOTIFIER_WEBHOOK_URL", "https://hooks.example.com/sessions")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, uint32(3), cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown)
	assert.Equal(t, []string{"matcher", "scorer"}, cfg.Services)
	assert.Equal(t, "@every 10s", cfg.Probe.Schedule)
	assert.Equal(t, map[string]string{
		"matcher": "http://matcher:8081/healthz",
		"scorer":  "http://scorer:8082/healthz",
	}, cfg.Probe.URLs)
	assert.True(t, cfg.Notifier.Enabled)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "not-a-number")
	t.Setenv("BREAKER_COOLDOWN", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, uint32(5), cfg.Breaker.FailureThreshold)
	assert.Equal(t, 300*time.Second, cfg.Breaker.Cooldown)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "PORT",
		},
		{
			name:    "zero failure threshold",
			mutate:  func(c *Config) { c.Breaker.FailureThreshold = 0 },
			wantErr: "BREAKER_FAILURE_THRESHOLD",
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.Breaker.Cooldown = -time.Second },
			wantErr: "BREAKER_COOLDOWN",
		},
		{
			name:    "no services",
			mutate:  func(c *Config) { c.Services = nil },
			wantErr: "SERVICES",
		},
		{
			name:    "empty probe schedule",
			mutate:  func(c *Config) { c.Probe.Schedule = "" },
			wantErr: "PROBE_SCHEDULE",
		},
		{
			name:    "probe timeout too short",
			mutate:  func(c *Config) { c.Probe.Timeout = time.Millisecond },
			wantErr: "PROBE_TIMEOUT",
		},
		{
			name:    "probe url empty",
			mutate:  func(c *Config) { c.Probe.URLs = map[string]string{"matcher": ""} },
			wantErr: "PROBE_URLS",
		},
		{
			name: "notifier enabled without url",
			mutate: func(c *Config) {
				c.Notifier.Enabled = true
				c.Notifier.WebhookURL = ""
			},
			wantErr: "NOTIFIER_WEBHOOK_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
