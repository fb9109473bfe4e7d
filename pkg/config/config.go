package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Typesense  TypesenseConfig
	OpenFDA    OpenFDAConfig
	Anthropic  AnthropicConfig
	Enrichment EnrichmentConfig
	Webhook    WebhookConfig
	OTEL       OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
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
	URL    string
	APIKey string
}

// OpenFDAConfig holds openFDA label API configuration
type OpenFDAConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AnthropicConfig holds Anthropic API configuration
type AnthropicConfig struct {
	APIKey         string
	Model          string
	MaxTokens      int
	RateLimitRPM   int
	RateLimitBurst int
}

// EnrichmentConfig holds enrichment pipeline tuning
type EnrichmentConfig struct {
	LabelTTL           time.Duration
	EnrichmentTTL      time.Duration
	RelatedDrugTarget  int
	RelatedDrugRetries int
}

// WebhookConfig holds the frontend cache-invalidation webhook configuration
type WebhookConfig struct {
	URL    string
	Secret string
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
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "drugfacts"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		OpenFDA: OpenFDAConfig{
			BaseURL: getEnv("OPENFDA_BASE_URL", "https://api.fda.gov/drug/label.json"),
			Timeout: getEnvAsDuration("OPENFDA_TIMEOUT", 15*time.Second),
		},
		Anthropic: AnthropicConfig{
			APIKey:         getEnv("ANTHROPIC_API_KEY", ""),
			Model:          getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			MaxTokens:      getEnvAsInt("ANTHROPIC_MAX_TOKENS", 2500),
			RateLimitRPM:   getEnvAsInt("ANTHROPIC_RATE_LIMIT_RPM", 50),
			RateLimitBurst: getEnvAsInt("ANTHROPIC_RATE_LIMIT_BURST", 5),
		},
		Enrichment: EnrichmentConfig{
			LabelTTL:           getEnvAsDuration("LABEL_TTL", 24*time.Hour),
			EnrichmentTTL:      getEnvAsDuration("ENRICHMENT_TTL", 7*24*time.Hour),
			RelatedDrugTarget:  getEnvAsInt("RELATED_DRUG_TARGET", 3),
			RelatedDrugRetries: getEnvAsInt("RELATED_DRUG_RETRIES", 3),
		},
		Webhook: WebhookConfig{
			URL:    getEnv("CACHE_WEBHOOK_URL", ""),
			Secret: getEnv("CACHE_WEBHOOK_SECRET", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "drugfacts-backend"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
