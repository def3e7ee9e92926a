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
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend string

	// Account service
	AccountServiceURL     string
	AccountServiceTimeout time.Duration

	// Database
	SQLiteDBPath string

	// Memory backend fixtures
	DataDirectory string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// LLM
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	// Models
	ForecastTrees        int
	ForecastSeed         int64
	AnomalyTrees         int
	AnomalySeed          int64
	AnomalyContamination float64
}

var validBackends = []string{"remote", "sqlite", "memory", "sheets"}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "5000"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend: getEnv("DATA_BACKEND", "remote"),

		AccountServiceURL:     getEnv("ACCOUNT_SERVICE_URL", "http://localhost:8080"),
		AccountServiceTimeout: getEnvDuration("ACCOUNT_SERVICE_TIMEOUT", 15*time.Second),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/finml.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finml"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "insights"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 500),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),

		ForecastTrees:        getEnvInt("FORECAST_TREES", 100),
		ForecastSeed:         int64(getEnvInt("FORECAST_SEED", 42)),
		AnomalyTrees:         getEnvInt("ANOMALY_TREES", 100),
		AnomalySeed:          int64(getEnvInt("ANOMALY_SEED", 42)),
		AnomalyContamination: getEnvFloat("ANOMALY_CONTAMINATION", 0.2),
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

	// Validate logging
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate account service if backend is remote
	if c.DataBackend == "remote" {
		if c.AccountServiceURL == "" {
			errors = append(errors, "account service URL cannot be empty when using remote backend")
		} else if parsedURL, err := url.Parse(c.AccountServiceURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid account service URL '%s': %v", c.AccountServiceURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid account service URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.AccountServiceTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid account service timeout %v: must be positive", c.AccountServiceTimeout))
		}
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

	// Validate Google Sheets configuration if backend is sheets
	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}

		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate LLM settings
	if c.OpenAIBaseURL != "" {
		if _, err := url.ParseRequestURI(c.OpenAIBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid OpenAI base URL '%s': %v", c.OpenAIBaseURL, err))
		}
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errors = append(errors, fmt.Sprintf("invalid LLM temperature %v: must be between 0 and 2", c.LLMTemperature))
	}
	if c.LLMMaxTokens < 1 {
		errors = append(errors, fmt.Sprintf("invalid LLM max tokens %d: must be at least 1", c.LLMMaxTokens))
	}
	if c.LLMTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid LLM timeout %v: must be at least 1 second", c.LLMTimeout))
	}

	// Validate model hyper-parameters
	if c.ForecastTrees < 1 || c.ForecastTrees > 1000 {
		errors = append(errors, fmt.Sprintf("invalid forecast trees %d: must be between 1 and 1000", c.ForecastTrees))
	}
	if c.AnomalyTrees < 1 || c.AnomalyTrees > 1000 {
		errors = append(errors, fmt.Sprintf("invalid anomaly trees %d: must be between 1 and 1000", c.AnomalyTrees))
	}
	if c.AnomalyContamination <= 0 || c.AnomalyContamination > 0.5 {
		errors = append(errors, fmt.Sprintf("invalid anomaly contamination %v: must be in (0, 0.5]", c.AnomalyContamination))
	}

	// Validate rate limit
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

// getEnvList splits a comma separated value, dropping blank entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
