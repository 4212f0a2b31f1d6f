// Package config provides environment-based configuration for the hive server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the hive server.
type Config struct {
	// Database configuration
	DatabaseDSN string

	// Server configuration
	APIHost string
	APIPort int

	// SiteURL is the public base URL used when building hive share links
	// and the link embedded in harvest notifications.
	SiteURL string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// NotifyTimeout bounds the delivery attempt for a single harvest
	// notification so one unreachable address cannot stall the batch.
	NotifyTimeout time.Duration

	// SMTP configuration for harvest notifications. When Host is empty,
	// notifications are logged instead of sent.
	SMTP SMTPConfig
}

// SMTPConfig holds SMTP delivery configuration for harvest notifications.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// fileConfig mirrors Config for the optional YAML overlay file. Pointer
// fields distinguish "absent" from zero values so the file only overrides
// what it sets.
type fileConfig struct {
	DatabaseDSN     *string     `yaml:"database_dsn"`
	APIHost         *string     `yaml:"api_host"`
	APIPort         *int        `yaml:"api_port"`
	SiteURL         *string     `yaml:"site_url"`
	ShutdownTimeout *string     `yaml:"shutdown_timeout"`
	NotifyTimeout   *string     `yaml:"notify_timeout"`
	SMTP            *SMTPConfig `yaml:"smtp"`
}

// Load reads configuration from environment variables, applies the optional
// YAML overlay file named by HIVE_CONFIG, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/hive?sslmode=disable"),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		SiteURL:         getEnv("SITE_URL", "http://localhost:8080"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		NotifyTimeout:   getDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getIntEnv("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
	}

	if path := os.Getenv("HIVE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("applying config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile overlays values from a YAML file onto the config.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	if fc.DatabaseDSN != nil {
		c.DatabaseDSN = *fc.DatabaseDSN
	}
	if fc.APIHost != nil {
		c.APIHost = *fc.APIHost
	}
	if fc.APIPort != nil {
		c.APIPort = *fc.APIPort
	}
	if fc.SiteURL != nil {
		c.SiteURL = *fc.SiteURL
	}
	if fc.ShutdownTimeout != nil {
		d, err := time.ParseDuration(*fc.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if fc.NotifyTimeout != nil {
		d, err := time.ParseDuration(*fc.NotifyTimeout)
		if err != nil {
			return fmt.Errorf("parsing notify_timeout: %w", err)
		}
		c.NotifyTimeout = d
	}
	if fc.SMTP != nil {
		c.SMTP = *fc.SMTP
	}

	return nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SiteURL == "" {
		return fmt.Errorf("SITE_URL is required")
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}
	return nil
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv returns the environment variable as an int or a default.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getDurationEnv returns the environment variable as a duration or a default.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
