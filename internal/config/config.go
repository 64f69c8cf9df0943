package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names the optional TOML file whose values env vars override.
const ConfigFileEnv = "SMARTEXPENSE_CONFIG"

const (
	DefaultGeminiModel = "gemini-3-flash-preview"
	DefaultOpenAIModel = "gpt-4o-mini"
)

type Config struct {
	// HTTP Server
	Port               string   `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	AuthRateLimit      int      `toml:"auth_rate_limit"`

	// Record store
	DataBackend  string `toml:"data_backend"`
	DataDir      string `toml:"data_dir"`
	SQLiteDBPath string `toml:"sqlite_db_path"`

	// AMQP (optional, queued backups)
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	BackupDir string `toml:"backup_dir"`

	// AI advisory
	AIProvider string        `toml:"ai_provider"`
	AIAPIKey   string        `toml:"ai_api_key"`
	AIModel    string        `toml:"ai_model"`
	AIBaseURL  string        `toml:"ai_base_url"`
	AITimeout  time.Duration `toml:"ai_timeout"`
	AICacheTTL time.Duration `toml:"ai_cache_ttl"`

	// Signup verification
	VerificationMode string `toml:"verification_mode"`
	VerificationCode string `toml:"verification_code"`

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleSheetName          string `toml:"google_sheet_name"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`
	GoogleServiceAccountJSON string `toml:"google_service_account_json"`

	LogLevel string `toml:"log_level"`
}

func defaults() *Config {
	return &Config{
		Port:             "8081",
		AuthRateLimit:    20,
		DataBackend:      "sqlite",
		DataDir:          "./data",
		SQLiteDBPath:     "./data/smartexpense.db",
		AMQPExchange:     "smartexpense",
		AMQPQueue:        "backups",
		BackupDir:        "./backups",
		AIProvider:       "gemini",
		AITimeout:        30 * time.Second,
		AICacheTTL:       10 * time.Minute,
		VerificationMode: "fixed",
		VerificationCode: "123456",
		GoogleSheetName:  "Transactions",
		LogLevel:         "info",
	}
}

// Load builds the configuration from defaults, then the optional TOML file,
// then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.AuthRateLimit = getEnvInt("AUTH_RATE_LIMIT", cfg.AuthRateLimit)

	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)
	cfg.BackupDir = getEnv("BACKUP_DIR", cfg.BackupDir)

	cfg.AIProvider = strings.ToLower(getEnv("AI_PROVIDER", cfg.AIProvider))
	cfg.AIAPIKey = getEnv("AI_API_KEY", getEnv("API_KEY", getEnv("GEMINI_API_KEY", cfg.AIAPIKey)))
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)
	cfg.AITimeout = getEnvDuration("AI_TIMEOUT", cfg.AITimeout)
	cfg.AICacheTTL = getEnvDuration("AI_CACHE_TTL", cfg.AICacheTTL)
	if cfg.AIModel == "" {
		cfg.AIModel = defaultModel(cfg.AIProvider)
	}

	cfg.VerificationMode = strings.ToLower(getEnv("VERIFICATION_MODE", cfg.VerificationMode))
	cfg.VerificationCode = getEnv("VERIFICATION_CODE", cfg.VerificationCode)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)
	cfg.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", cfg.GoogleServiceAccountFile)
	cfg.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", cfg.GoogleServiceAccountJSON)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

func defaultModel(provider string) string {
	if provider == "openai" {
		return DefaultOpenAIModel
	}
	return DefaultGeminiModel
}

// AMQPEnabled reports whether queued backups are configured.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// SheetsEnabled reports whether Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "file", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.DataBackend == "file" && c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty when using file backend")
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

	if c.BackupDir == "" {
		errors = append(errors, "backup directory cannot be empty")
	}

	validProviders := []string{"gemini", "openai"}
	if !slices.Contains(validProviders, c.AIProvider) {
		errors = append(errors, fmt.Sprintf("invalid AI provider '%s': must be one of %v", c.AIProvider, validProviders))
	}
	if c.AITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be positive", c.AITimeout))
	} else if c.AITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be at most 5 minutes", c.AITimeout))
	}
	if c.AICacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid AI cache TTL %v: must not be negative", c.AICacheTTL))
	}
	if c.AIBaseURL != "" {
		if u, err := url.Parse(c.AIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid AI base URL '%s'", c.AIBaseURL))
		}
	}

	switch c.VerificationMode {
	case "fixed":
		if c.VerificationCode == "" {
			errors = append(errors, "verification code cannot be empty in fixed mode")
		}
	case "random":
	default:
		errors = append(errors, fmt.Sprintf("invalid verification mode '%s': must be 'fixed' or 'random'", c.VerificationMode))
	}

	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid CORS origin '%s'", origin))
		}
	}

	if c.AuthRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid auth rate limit %d: must be at least 1", c.AuthRateLimit))
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for Sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
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
	return out
}
