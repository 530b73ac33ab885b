package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-dss-server/internal/domain"
)

func TestNewManagerDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50.0, cfg.Server.RateLimit)
	assert.Equal(t, 100, cfg.Server.RateBurst)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "", cfg.Knowledge.DataDir)
	assert.Equal(t, "sqlite", cfg.Feedback.Driver)
	assert.Equal(t, 512, cfg.Matcher.CacheSize)
}

func TestManagerEnvOverride(t *testing.T) {
	t.Setenv("CLINDSS_SERVER_PORT", "9090")
	t.Setenv("CLINDSS_LOGGING_LEVEL", "debug")

	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	valid := domain.Config{
		Server: domain.ServerConfig{
			Host: "0.0.0.0", Port: 8080, RateLimit: 50, RateBurst: 100,
		},
		Logging:  domain.LoggingConfig{Level: "info", Format: "json"},
		Feedback: domain.FeedbackConfig{Driver: "sqlite", Path: "./feedback.db"},
		Matcher:  domain.MatcherConfig{CacheSize: 512},
	}

	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *domain.Config) {}},
		{
			name:    "bad port",
			mutate:  func(c *domain.Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "bad rate limit",
			mutate:  func(c *domain.Config) { c.Server.RateLimit = 0 },
			wantErr: "invalid rate limit",
		},
		{
			name:    "bad logging level",
			mutate:  func(c *domain.Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
		{
			name:    "bad logging format",
			mutate:  func(c *domain.Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *domain.Config) { c.Feedback.Path = "" },
			wantErr: "feedback path is required",
		},
		{
			name: "postgres without url",
			mutate: func(c *domain.Config) {
				c.Feedback.Driver = "postgres"
				c.Feedback.DatabaseURL = ""
			},
			wantErr: "database_url is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *domain.Config) { c.Feedback.Driver = "oracle" },
			wantErr: "invalid feedback driver",
		},
		{
			name:    "negative cache size",
			mutate:  func(c *domain.Config) { c.Matcher.CacheSize = -1 },
			wantErr: "invalid matcher cache size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			m := &Manager{config: &cfg}

			err := m.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
