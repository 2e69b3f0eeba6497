package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Tracker       TrackerConfig
	Webhook       WebhookConfig
	StatusMapping StatusMappingConfig
	Admin         AdminConfig
	Logging       LoggingConfig
}

type ServerConfig struct {
	Host         string        `validate:"required"`
	Port         string        `validate:"required,numeric"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	TLSCertFile  string        `validate:"required_with=TLSKeyFile"`
	TLSKeyFile   string        `validate:"required_with=TLSCertFile"`
}

// TLSEnabled reports whether both certificate and key are configured
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// TrackerConfig configures the OpenProject API client
type TrackerConfig struct {
	BaseURL string        `validate:"required,url"`
	APIKey  string        `validate:"required"`
	Timeout time.Duration `validate:"gt=0"`
}

type WebhookConfig struct {
	GitHubSecret    string
	GitLabSecret    string
	RateLimitPerMin int `validate:"gte=0"`
}

type StatusMappingConfig struct {
	Path string
}

type AdminConfig struct {
	Token string
}

type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn warning error fatal"`
	Format string `validate:"oneof=json console"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvWithDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvWithDefault("SERVER_PORT", "8000"),
			ReadTimeout:  getDurationFromEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationFromEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			TLSCertFile:  os.Getenv("TLS_CERT_FILE"),
			TLSKeyFile:   os.Getenv("TLS_KEY_FILE"),
		},
		Tracker: TrackerConfig{
			BaseURL: os.Getenv("OPENPROJECT_URL"),
			APIKey:  os.Getenv("OPENPROJECT_API_KEY"),
			Timeout: getDurationFromEnv("OPENPROJECT_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			GitHubSecret:    os.Getenv("GITHUB_WEBHOOK_SECRET"),
			GitLabSecret:    os.Getenv("GITLAB_WEBHOOK_SECRET"),
			RateLimitPerMin: getIntFromEnv("WEBHOOK_RATE_LIMIT_PER_MIN", 600),
		},
		StatusMapping: StatusMappingConfig{
			Path: os.Getenv("STATUS_MAPPING_PATH"),
		},
		Admin: AdminConfig{
			Token: os.Getenv("ADMIN_TOKEN"),
		},
		Logging: LoggingConfig{
			Level:  getEnvWithDefault("LOG_LEVEL", "info"),
			Format: getEnvWithDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings and value ranges
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntFromEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationFromEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
