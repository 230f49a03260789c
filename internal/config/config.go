package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// NRS node
	NRSURL         string
	NRSTimeout     time.Duration
	DefaultAccount string

	// Watermark persistence
	DataBackend  string
	SQLiteDBPath string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sessions
	SessionTTL       time.Duration
	SessionCacheSize int
	// RefreshAfter is how old a session's counts may get before a poll
	// recounts them against the node. Zero only recounts on demand.
	RefreshAfter time.Duration

	// Worker
	PruneInterval      time.Duration
	WatermarkRetention time.Duration

	LogLevel  string
	LogFormat string
	Language  string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		NRSURL:         getEnv("NRS_URL", "http://localhost:7876"),
		NRSTimeout:     getEnvDuration("NRS_TIMEOUT", 10*time.Second),
		DefaultAccount: getEnv("DEFAULT_ACCOUNT", ""),

		DataBackend:  getEnv("DATA_BACKEND", "cookie"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/nrsnotify.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "nrsnotify"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "watermarks_updated"),

		SessionTTL:       getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", 1000),
		RefreshAfter:     getEnvDuration("REFRESH_AFTER", 5*time.Minute),

		PruneInterval:      getEnvDuration("PRUNE_INTERVAL", 24*time.Hour),
		WatermarkRetention: getEnvDuration("WATERMARK_RETENTION", 100*24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		Language:  getEnv("LANGUAGE", "en"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate node URL
	if c.NRSURL == "" {
		errors = append(errors, "NRS URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.NRSURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid NRS URL '%s': %v", c.NRSURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid NRS URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.NRSTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid NRS timeout %v: must be at least 100ms", c.NRSTimeout))
	} else if c.NRSTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid NRS timeout %v: must be at most 2 minutes", c.NRSTimeout))
	}

	if c.DefaultAccount != "" {
		if _, err := strconv.ParseUint(c.DefaultAccount, 10, 64); err != nil {
			errors = append(errors, fmt.Sprintf("invalid default account '%s': must be a numeric account id", c.DefaultAccount))
		}
	}

	// Validate data backend
	validBackends := []string{"cookie", "memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate sessions
	if c.SessionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.RefreshAfter < 0 {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must not be negative", c.RefreshAfter))
	}

	// Validate worker configuration
	if c.PruneInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid prune interval %v: must be at least 1 minute", c.PruneInterval))
	}
	if c.WatermarkRetention < 0 {
		errors = append(errors, fmt.Sprintf("invalid watermark retention %v: must not be negative", c.WatermarkRetention))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.Language == "" {
		errors = append(errors, "language cannot be empty")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
