package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// MaxAutocompleteLimit is the hard cap on suggestions per keyword.
const MaxAutocompleteLimit = 8

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	OTEL      OTELConfig
	Search    SearchConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
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
	Enabled bool
	URL     string
	APIKey  string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// SearchConfig holds search and autocomplete tuning
type SearchConfig struct {
	// Timezone is the fixed operating timezone used for open-now checks.
	Timezone          string
	DefaultPageSize   int
	MaxPageSize       int
	AutocompleteLimit int
}

// Load reads an optional YAML file and then applies environment overrides.
// An empty path loads from the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv(k, "SERVER_HOST", "server.host", "0.0.0.0"),
			Port:           getEnvAsInt(k, "SERVER_PORT", "server.port", 8080),
			Env:            getEnv(k, "APP_ENV", "server.env", "development"),
			AllowedOrigins: splitList(getEnv(k, "ALLOWED_ORIGINS", "server.allowed_origins", "")),
		},
		Database: DatabaseConfig{
			Host:     getEnv(k, "DB_HOST", "database.host", "localhost"),
			Port:     getEnvAsInt(k, "DB_PORT", "database.port", 5432),
			User:     getEnv(k, "DB_USER", "database.user", "postgres"),
			Password: getEnv(k, "DB_PASSWORD", "database.password", ""),
			Database: getEnv(k, "DB_NAME", "database.name", "facility_search"),
			SSLMode:  getEnv(k, "DB_SSLMODE", "database.sslmode", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv(k, "REDIS_HOST", "redis.host", "localhost"),
			Port:     getEnvAsInt(k, "REDIS_PORT", "redis.port", 6379),
			Password: getEnv(k, "REDIS_PASSWORD", "redis.password", ""),
			DB:       getEnvAsInt(k, "REDIS_DB", "redis.db", 0),
		},
		Typesense: TypesenseConfig{
			Enabled: getEnvAsBool(k, "TYPESENSE_ENABLED", "typesense.enabled", false),
			URL:     getEnv(k, "TYPESENSE_URL", "typesense.url", "http://localhost:8108"),
			APIKey:  getEnv(k, "TYPESENSE_API_KEY", "typesense.api_key", "xyz"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv(k, "OTEL_SERVICE_NAME", "otel.service_name", "facility-search"),
			ServiceVersion: getEnv(k, "OTEL_SERVICE_VERSION", "otel.service_version", "1.0.0"),
			Endpoint:       getEnv(k, "OTEL_ENDPOINT", "otel.endpoint", ""),
			Enabled:        getEnvAsBool(k, "OTEL_ENABLED", "otel.enabled", false),
		},
		Search: SearchConfig{
			Timezone:          getEnv(k, "SEARCH_TIMEZONE", "search.timezone", "Asia/Seoul"),
			DefaultPageSize:   getEnvAsInt(k, "SEARCH_DEFAULT_PAGE_SIZE", "search.default_page_size", 20),
			MaxPageSize:       getEnvAsInt(k, "SEARCH_MAX_PAGE_SIZE", "search.max_page_size", 100),
			AutocompleteLimit: getEnvAsInt(k, "AUTOCOMPLETE_LIMIT", "search.autocomplete_limit", MaxAutocompleteLimit),
		},
	}

	if cfg.Search.AutocompleteLimit > MaxAutocompleteLimit {
		cfg.Search.AutocompleteLimit = MaxAutocompleteLimit
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted sensibly
func (c *Config) Validate() error {
	if _, err := c.Search.Location(); err != nil {
		return fmt.Errorf("invalid SEARCH_TIMEZONE %q: %w", c.Search.Timezone, err)
	}
	if c.Search.DefaultPageSize <= 0 || c.Search.MaxPageSize <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE (%d) exceeds SEARCH_MAX_PAGE_SIZE (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	if c.Search.AutocompleteLimit <= 0 {
		return fmt.Errorf("AUTOCOMPLETE_LIMIT must be positive")
	}
	return nil
}

// Location resolves the operating timezone
func (c *SearchConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
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

func getEnv(k *koanf.Koanf, envKey, fileKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if k.Exists(fileKey) {
		return k.String(fileKey)
	}
	return defaultValue
}

func getEnvAsInt(k *koanf.Koanf, envKey, fileKey string, defaultValue int) int {
	if value := os.Getenv(envKey); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	if k.Exists(fileKey) {
		return k.Int(fileKey)
	}
	return defaultValue
}

func getEnvAsBool(k *koanf.Koanf, envKey, fileKey string, defaultValue bool) bool {
	if value := os.Getenv(envKey); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	if k.Exists(fileKey) {
		return k.Bool(fileKey)
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
