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

// Config holds all runtime settings, loaded from environment variables.
type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP event bus. Empty URL disables event publishing; the server runs
	// standalone and the backup worker cannot start.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets backup (worker only)
	BackupSpreadsheetID string
	BackupSheetName     string

	// Worker
	RetryInterval time.Duration
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spending.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendtrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		BackupSpreadsheetID: getEnv("BACKUP_SPREADSHEET_ID", ""),
		BackupSheetName:     getEnv("BACKUP_SHEET_NAME", "Expenses"),

		RetryInterval: getEnvDuration("RETRY_INTERVAL", 30*time.Second),
	}
}

// Validate checks the configuration and returns a single error listing
// every problem found.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RetryInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid retry interval %v: must be at least 1 second", c.RetryInterval))
	} else if c.RetryInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid retry interval %v: must be at most 24 hours", c.RetryInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// BackupEnabled reports whether the worker has enough configuration to
// export expenses to Google Sheets.
func (c *Config) BackupEnabled() bool {
	return c.BackupSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
