package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/clinical-dss-server/internal/domain"
)

// Manager loads and holds application configuration using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/clinical-dss-server/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("CLINDSS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.rate_limit", 50.0)
	viper.SetDefault("server.rate_burst", 100)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Knowledge base defaults; empty data_dir selects the embedded tables
	viper.SetDefault("knowledge.data_dir", "")

	// Feedback store defaults
	viper.SetDefault("feedback.driver", "sqlite")
	viper.SetDefault("feedback.path", "./data/feedback.db")
	viper.SetDefault("feedback.database_url", "")

	// Matcher defaults
	viper.SetDefault("matcher.cache_size", 512)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RateLimit <= 0 {
		return fmt.Errorf("invalid rate limit: %f", config.Server.RateLimit)
	}
	if config.Server.RateBurst <= 0 {
		return fmt.Errorf("invalid rate burst: %d", config.Server.RateBurst)
	}

	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid logging level: %s", config.Logging.Level)
	}
	switch config.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %s", config.Logging.Format)
	}

	switch config.Feedback.Driver {
	case "sqlite":
		if config.Feedback.Path == "" {
			return fmt.Errorf("feedback path is required for sqlite driver")
		}
	case "postgres":
		if config.Feedback.DatabaseURL == "" {
			return fmt.Errorf("feedback database_url is required for postgres driver")
		}
	default:
		return fmt.Errorf("invalid feedback driver: %s", config.Feedback.Driver)
	}

	if config.Matcher.CacheSize < 0 {
		return fmt.Errorf("invalid matcher cache size: %d", config.Matcher.CacheSize)
	}

	return nil
}
