package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port string

	// Data backend: memory, sqlite, postgres or supabase
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// Supabase (data, auth and receipt storage)
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	// Auth backend: memory or supabase
	AuthBackend string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Receipt analyzer
	ReceiptAddr          string
	ReceiptToken         string
	ReceiptMaxConcurrent int

	// Workers
	RecurringSchedule string
	RecalcInterval    time.Duration

	// HTTP
	CacheTTL           time.Duration
	CacheSize          int
	RateLimitPerMinute int

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends     = []string{"memory", "sqlite", "postgres", "supabase"}
	validAuthBackends = []string{"memory", "supabase"}
	validLogFormats   = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/conti.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		SupabaseURL:    getEnv("SUPABASE_URL", ""),
		SupabaseKey:    getEnv("SUPABASE_KEY", ""),
		SupabaseBucket: getEnv("SUPABASE_BUCKET", "receipts"),

		AuthBackend: getEnv("AUTH_BACKEND", "memory"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "conti"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		ReceiptAddr:          getEnv("RECEIPT_ADDR", ""),
		ReceiptToken:         getEnv("RECEIPT_TOKEN", ""),
		ReceiptMaxConcurrent: getEnvInt("RECEIPT_MAX_CONCURRENT", 4),

		RecurringSchedule: getEnv("RECURRING_SCHEDULE", "@hourly"),
		RecalcInterval:    getEnvDuration("RECALC_INTERVAL", 15*time.Minute),

		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize:          getEnvInt("CACHE_SIZE", 256),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// UsesAMQP reports whether transaction events go through the broker.
func (c *Config) UsesAMQP() bool { return c.AMQPURL != "" }

// UsesSheets reports whether transactions are exported to Google Sheets.
func (c *Config) UsesSheets() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
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

	if c.DataBackend == "postgres" && c.DatabaseURL == "" {
		errors = append(errors, "DATABASE_URL is required when using postgres backend")
	}

	// Validate auth backend
	if !slices.Contains(validAuthBackends, c.AuthBackend) {
		errors = append(errors, fmt.Sprintf("invalid auth backend '%s': must be one of %v", c.AuthBackend, validAuthBackends))
	}

	// Supabase settings are shared by the data and auth backends
	if c.DataBackend == "supabase" || c.AuthBackend == "supabase" {
		if c.SupabaseURL == "" {
			errors = append(errors, "SUPABASE_URL is required when using supabase")
		} else if u, err := url.Parse(c.SupabaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid SUPABASE_URL '%s'", c.SupabaseURL))
		}
		if c.SupabaseKey == "" {
			errors = append(errors, "SUPABASE_KEY is required when using supabase")
		}
	}
	if c.DataBackend == "supabase" && c.SupabaseBucket == "" {
		errors = append(errors, "SUPABASE_BUCKET cannot be empty when using supabase backend")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	// Validate AMQP exchange and queue names if AMQP is configured
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets configuration if export is enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}

		hasFile := c.GoogleCredentialsFile != ""
		hasJSON := c.GoogleCredentialsJSON != ""
		if !hasFile && !hasJSON && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}

		if hasFile {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.ReceiptMaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("invalid receipt concurrency %d: must be at least 1", c.ReceiptMaxConcurrent))
	} else if c.ReceiptMaxConcurrent > 64 {
		errors = append(errors, fmt.Sprintf("invalid receipt concurrency %d: must be at most 64", c.ReceiptMaxConcurrent))
	}

	// Validate worker configuration
	if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recurring schedule '%s': %v", c.RecurringSchedule, err))
	}

	if c.RecalcInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid recalc interval %v: must be at least 1 second", c.RecalcInterval))
	} else if c.RecalcInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recalc interval %v: must be at most 24 hours", c.RecalcInterval))
	}

	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
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
