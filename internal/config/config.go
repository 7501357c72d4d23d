package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"datalens/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Backend BackendConfig
	Server  ServerConfig
	Upload  UploadConfig
}

// BackendConfig holds settings for the external analysis backend
type BackendConfig struct {
	URL            string
	UploadTimeout  time.Duration
	AnalyzeTimeout time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// UploadConfig holds upload validation settings
type UploadConfig struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Backend: BackendConfig{
			URL:            getEnvOrDefault("BACKEND_URL", ""),
			UploadTimeout:  getEnvDurationOrDefault("UPLOAD_TIMEOUT", 30*time.Second),
			AnalyzeTimeout: getEnvDurationOrDefault("ANALYZE_TIMEOUT", 20*time.Second),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Upload: UploadConfig{
			MaxSizeBytes:      int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
			AllowedExtensions: splitList(getEnvOrDefault("ALLOWED_EXTENSIONS", ".csv,.xlsx,.xls,.json")),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Backend.UploadTimeout <= 0 {
		return errors.ConfigInvalid("UPLOAD_TIMEOUT must be positive")
	}
	if config.Backend.AnalyzeTimeout <= 0 {
		return errors.ConfigInvalid("ANALYZE_TIMEOUT must be positive")
	}
	if config.Upload.MaxSizeBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if len(config.Upload.AllowedExtensions) == 0 {
		return errors.ConfigInvalid("ALLOWED_EXTENSIONS must name at least one extension")
	}
	for _, ext := range config.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.ConfigInvalid("extensions must start with a dot: " + ext)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
