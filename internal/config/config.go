package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "dailyowo/internal/log"
)

type Config struct {
	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP alert delivery; an empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Taxonomy
	TaxonomyFile string

	// Duplicate detection
	DuplicateWindowHours  int
	DuplicateMinimumScore int
	DuplicateStrictMode   bool

	// Worker
	RolloverInterval  time.Duration
	WorkerConcurrency int

	// Snapshot cache
	SnapshotCacheSize int
	SnapshotCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/dailyowo.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "dailyowo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_alerts"),

		TaxonomyFile: getEnv("TAXONOMY_FILE", ""),

		DuplicateWindowHours:  getEnvInt("DUPLICATE_WINDOW_HOURS", 24),
		DuplicateMinimumScore: getEnvInt("DUPLICATE_MINIMUM_SCORE", 75),
		DuplicateStrictMode:   getEnvBool("DUPLICATE_STRICT_MODE", false),

		RolloverInterval:  getEnvDuration("ROLLOVER_INTERVAL", time.Hour),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		SnapshotCacheSize: getEnvInt("SNAPSHOT_CACHE_SIZE", 256),
		SnapshotCacheTTL:  getEnvDuration("SNAPSHOT_CACHE_TTL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{"memory", "sqlite"}
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

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
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

	if c.TaxonomyFile != "" {
		if _, err := os.Stat(c.TaxonomyFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("taxonomy file does not exist: %s", c.TaxonomyFile))
		}
	}

	if c.DuplicateWindowHours < 1 || c.DuplicateWindowHours > 24*31 {
		errors = append(errors, fmt.Sprintf("invalid duplicate window %dh: must be between 1 and 744 hours", c.DuplicateWindowHours))
	}
	if c.DuplicateMinimumScore < 1 || c.DuplicateMinimumScore > 100 {
		errors = append(errors, fmt.Sprintf("invalid duplicate minimum score %d: must be between 1 and 100", c.DuplicateMinimumScore))
	}

	if c.RolloverInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rollover interval %v: must be at least 1 second", c.RolloverInterval))
	} else if c.RolloverInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rollover interval %v: must be at most 24 hours", c.RolloverInterval))
	}
	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be between 1 and 64", c.WorkerConcurrency))
	}

	if c.SnapshotCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache size %d: must not be negative", c.SnapshotCacheSize))
	}
	if c.SnapshotCacheSize > 0 && c.SnapshotCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache TTL %v: must be positive when the cache is enabled", c.SnapshotCacheTTL))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
