package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Server    ServerConfig
	Backend   BackendConfig
	Session   SessionConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Analytics AnalyticsConfig
	UI        UIConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// BackendConfig describes the search/recommendation API consumed by the storefront
type BackendConfig struct {
	BaseURL string
	// TimeoutSeconds of 0 leaves timeouts to the transport and request context.
	TimeoutSeconds int
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName      string
	RememberMeHours int
	SecureCookie    bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AnalyticsConfig toggles the Postgres search analytics sink
type AnalyticsConfig struct {
	Enabled bool
}

// UIConfig holds presentation tunables
type UIConfig struct {
	SearchMaxResults   int
	AnalysisDebounceMs int
	HistoryMaxEntries  int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_API_URL", "http://localhost:8000"),
			TimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 0),
		},
		Session: SessionConfig{
			CookieName:      getEnv("SESSION_COOKIE_NAME", "searchiq_sid"),
			RememberMeHours: getEnvAsInt("SESSION_REMEMBER_ME_HOURS", 7*24),
			SecureCookie:    getEnvAsBool("SESSION_SECURE_COOKIE", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "searchiq"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Analytics: AnalyticsConfig{
			Enabled: getEnvAsBool("ANALYTICS_ENABLED", false),
		},
		UI: UIConfig{
			SearchMaxResults:   getEnvAsInt("UI_SEARCH_MAX_RESULTS", 10),
			AnalysisDebounceMs: getEnvAsInt("UI_ANALYSIS_DEBOUNCE_MS", 800),
			HistoryMaxEntries:  getEnvAsInt("UI_HISTORY_MAX_ENTRIES", 50),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "searchiq-storefront"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("BACKEND_API_URL must not be empty")
	}
	if cfg.UI.SearchMaxResults <= 0 {
		return nil, fmt.Errorf("UI_SEARCH_MAX_RESULTS must be positive, got %d", cfg.UI.SearchMaxResults)
	}
	if cfg.UI.HistoryMaxEntries <= 0 {
		return nil, fmt.Errorf("UI_HISTORY_MAX_ENTRIES must be positive, got %d", cfg.UI.HistoryMaxEntries)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the backend client timeout; zero means none.
func (c *BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RememberMeTTL is the lifetime of a persistent session cookie.
func (c *SessionConfig) RememberMeTTL() time.Duration {
	return time.Duration(c.RememberMeHours) * time.Hour
}

// AnalysisDebounce returns the quiet period for live analysis drafts.
func (c *UIConfig) AnalysisDebounce() time.Duration {
	return time.Duration(c.AnalysisDebounceMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
