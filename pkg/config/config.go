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
	Env        string
	LogLevel   string
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Typesense  TypesenseConfig
	Perenual   PerenualConfig
	Enrichment EnrichmentConfig
	OTEL       OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
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
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL     string
	APIKey  string
	Enabled bool
}

// PerenualConfig holds the species provider configuration.
// The free tier allows 100 requests per day.
type PerenualConfig struct {
	APIKey            string
	BaseURL           string
	DailyLimit        int
	Timeout           time.Duration
	RateLimitBackoff  time.Duration
	RequestsPerSecond float64
	IndoorSearchFirst bool
}

// EnrichmentConfig holds the daily enrichment job configuration
type EnrichmentConfig struct {
	SchedulerEnabled    bool
	ScheduleHour        int
	ScheduleMinute      int
	Timezone            string
	PlantDelay          time.Duration
	TriggerLimitPerHour int
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
		Env:      getEnv("ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "dontkillit"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "dontkillit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
		},
		Perenual: PerenualConfig{
			APIKey:            getEnv("PERENUAL_API_KEY", ""),
			BaseURL:           getEnv("PERENUAL_BASE_URL", "https://perenual.com/api/v2"),
			DailyLimit:        getEnvAsInt("PERENUAL_DAILY_LIMIT", 100),
			Timeout:           getEnvAsSeconds("PERENUAL_TIMEOUT_SECONDS", 30),
			RateLimitBackoff:  getEnvAsSeconds("PERENUAL_RATE_LIMIT_BACKOFF_SECONDS", 60),
			RequestsPerSecond: getEnvAsFloat("PERENUAL_REQUESTS_PER_SECOND", 1),
			IndoorSearchFirst: getEnvAsBool("PERENUAL_INDOOR_SEARCH_FIRST", true),
		},
		Enrichment: EnrichmentConfig{
			SchedulerEnabled:    getEnvAsBool("ENRICHMENT_SCHEDULER_ENABLED", true),
			ScheduleHour:        getEnvAsInt("ENRICHMENT_SCHEDULE_HOUR", 3),
			ScheduleMinute:      getEnvAsInt("ENRICHMENT_SCHEDULE_MINUTE", 0),
			Timezone:            getEnv("ENRICHMENT_TIMEZONE", "UTC"),
			PlantDelay:          getEnvAsSeconds("ENRICHMENT_PLANT_DELAY_SECONDS", 3),
			TriggerLimitPerHour: getEnvAsInt("ENRICHMENT_TRIGGER_LIMIT_PER_HOUR", 5),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "dontkillit-backend"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the enrichment pipeline cannot run with
func (c *Config) Validate() error {
	if c.Perenual.DailyLimit <= 0 {
		return fmt.Errorf("PERENUAL_DAILY_LIMIT must be positive, got %d", c.Perenual.DailyLimit)
	}
	if c.Enrichment.ScheduleHour < 0 || c.Enrichment.ScheduleHour > 23 {
		return fmt.Errorf("ENRICHMENT_SCHEDULE_HOUR must be within 0-23, got %d", c.Enrichment.ScheduleHour)
	}
	if c.Enrichment.ScheduleMinute < 0 || c.Enrichment.ScheduleMinute > 59 {
		return fmt.Errorf("ENRICHMENT_SCHEDULE_MINUTE must be within 0-59, got %d", c.Enrichment.ScheduleMinute)
	}
	if _, err := time.LoadLocation(c.Enrichment.Timezone); err != nil {
		return fmt.Errorf("invalid ENRICHMENT_TIMEZONE %q: %w", c.Enrichment.Timezone, err)
	}
	return nil
}

// Location returns the time zone that defines the enrichment calendar day
func (c *EnrichmentConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
