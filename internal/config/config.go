package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ledgerlens/internal/log"
)

// Export backends.
const (
	ExportNone   = "none"
	ExportMemory = "memory"
	ExportSheets = "sheets"
)

var exportBackends = []string{ExportNone, ExportMemory, ExportSheets}

type Config struct {
	// Database
	DBPath string `mapstructure:"db_path"`

	// Logging and display
	LogLevel string `mapstructure:"log_level"`
	Currency string `mapstructure:"currency"`
	Locale   string `mapstructure:"locale"`

	// AMQP
	AMQPURL          string `mapstructure:"amqp_url"`
	AMQPExchange     string `mapstructure:"amqp_exchange"`
	AMQPRequestQueue string `mapstructure:"amqp_request_queue"`
	AMQPResultQueue  string `mapstructure:"amqp_result_queue"`

	// Worker
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	TitleCacheSize  int           `mapstructure:"title_cache_size"`
	TitleCacheTTL   time.Duration `mapstructure:"title_cache_ttl"`

	// Report export
	ExportBackend         string `mapstructure:"export_backend"`
	GoogleSpreadsheetID   string `mapstructure:"google_spreadsheet_id"`
	GoogleSheetName       string `mapstructure:"google_sheet_name"`
	GoogleOAuthClientFile string `mapstructure:"google_oauth_client_file"`
	GoogleOAuthTokenFile  string `mapstructure:"google_oauth_token_file"`
	GoogleOAuthClientJSON string `mapstructure:"google_oauth_client_json"`
	GoogleOAuthTokenJSON  string `mapstructure:"google_oauth_token_json"`
}

var defaults = map[string]any{
	"db_path":                  "./data/ledgerlens.db",
	"log_level":                "info",
	"currency":                 "USD",
	"locale":                   "en",
	"amqp_url":                 "",
	"amqp_exchange":            "ledgerlens",
	"amqp_request_queue":       "report_requests",
	"amqp_result_queue":        "report_results",
	"refresh_interval":         "15m",
	"title_cache_size":         256,
	"title_cache_ttl":          "1m",
	"export_backend":           ExportNone,
	"google_spreadsheet_id":    "",
	"google_sheet_name":        "Reports",
	"google_oauth_client_file": "",
	"google_oauth_token_file":  "",
	"google_oauth_client_json": "",
	"google_oauth_token_json":  "",
}

// Load reads .env (when present), an optional TOML file named by
// LEDGERLENS_CONFIG, and LEDGERLENS_* environment overrides, in increasing
// order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("toml")
	if path := os.Getenv("LEDGERLENS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("LEDGERLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if len(c.Currency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be a three letter ISO 4217 code", c.Currency))
	}
	if c.Locale == "" {
		errors = append(errors, "locale cannot be empty")
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
		if c.AMQPRequestQueue == "" {
			errors = append(errors, "AMQP request queue cannot be empty when AMQP URL is provided")
		}
		if c.AMQPResultQueue == "" {
			errors = append(errors, "AMQP result queue cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if c.TitleCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid title cache size %d: must be at least 1", c.TitleCacheSize))
	}
	if c.TitleCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid title cache ttl %v: must be positive", c.TitleCacheTTL))
	}

	isValidBackend := false
	for _, backend := range exportBackends {
		if c.ExportBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of %v", c.ExportBackend, exportBackends))
	}

	if c.ExportBackend == ExportSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets export")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets export")
		}

		hasClientFile := c.GoogleOAuthClientFile != ""
		hasClientJSON := c.GoogleOAuthClientJSON != ""
		if !hasClientFile && !hasClientJSON {
			errors = append(errors, "either LEDGERLENS_GOOGLE_OAUTH_CLIENT_FILE or LEDGERLENS_GOOGLE_OAUTH_CLIENT_JSON must be provided for sheets export")
		}

		hasTokenFile := c.GoogleOAuthTokenFile != ""
		hasTokenJSON := c.GoogleOAuthTokenJSON != ""
		if !hasTokenFile && !hasTokenJSON {
			errors = append(errors, "either LEDGERLENS_GOOGLE_OAUTH_TOKEN_FILE or LEDGERLENS_GOOGLE_OAUTH_TOKEN_JSON must be provided for sheets export")
		}

		if hasClientFile {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if hasTokenFile {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
