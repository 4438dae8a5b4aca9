package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"wastedash/internal/core"
)

// Data backends.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
	BackendMemory   = "memory"
)

var validBackends = []string{BackendCSV, BackendSQLite, BackendPostgres, BackendSheets, BackendMemory}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// CSV file
	DataFile     string
	CSVDelimiter string

	// Databases
	SQLiteDBPath string
	PostgresDSN  string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP snapshot jobs; empty URL disables them
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	SnapshotDir  string

	// Dashboard
	YearAxisStart int
	YearAxisEnd   int
	ViewCacheSize int
	ViewCacheTTL  time.Duration
	RateLimitRPM  int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DataBackend: getEnv("DATA_BACKEND", BackendCSV),

		DataFile:     getEnv("DATA_FILE", "./data/waste.csv"),
		CSVDelimiter: getEnv("CSV_DELIMITER", ","),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/wastedash.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Waste"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "wastedash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshots"),
		SnapshotDir:  getEnv("SNAPSHOT_DIR", "./data/snapshots"),

		YearAxisStart: getEnvInt("YEAR_AXIS_START", 2005),
		YearAxisEnd:   getEnvInt("YEAR_AXIS_END", 2025),
		ViewCacheSize: getEnvInt("VIEW_CACHE_SIZE", 256),
		ViewCacheTTL:  getEnvDuration("VIEW_CACHE_TTL", 10*time.Minute),
		RateLimitRPM:  getEnvInt("RATE_LIMIT_RPM", 30),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// YearAxis is the fixed discrete year axis of the charts.
func (c *Config) YearAxis() core.YearRange {
	return core.YearRange{Min: c.YearAxisStart, Max: c.YearAxisEnd}
}

// Delimiter returns the CSV field separator. "\t" and "tab" mean tab.
func (c *Config) Delimiter() rune {
	switch c.CSVDelimiter {
	case "", ",":
		return ','
	case `\t`, "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

// SnapshotsEnabled reports whether snapshot jobs can be published.
func (c *Config) SnapshotsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

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

	switch c.DataBackend {
	case BackendCSV:
		if c.DataFile == "" {
			errors = append(errors, "data file cannot be empty when using csv backend")
		}
		if d := c.Delimiter(); d == '\r' || d == '\n' || d == '"' || d == utf8.RuneError {
			errors = append(errors, fmt.Sprintf("invalid CSV delimiter %q", c.CSVDelimiter))
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
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

	if c.YearAxisStart > c.YearAxisEnd {
		errors = append(errors, fmt.Sprintf("invalid year axis %d-%d: start must not be after end", c.YearAxisStart, c.YearAxisEnd))
	}
	if c.YearAxisStart < 1 || c.YearAxisEnd > 9999 {
		errors = append(errors, fmt.Sprintf("invalid year axis %d-%d: years must be between 1 and 9999", c.YearAxisStart, c.YearAxisEnd))
	}

	if c.ViewCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid view cache size %d: must be at least 1", c.ViewCacheSize))
	}
	if c.ViewCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid view cache TTL %v: must be at least 1 second", c.ViewCacheTTL))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
