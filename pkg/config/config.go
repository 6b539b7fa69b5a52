package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/janusgate/janus/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional session store)
	Redis RedisConfig `yaml:"redis"`

	// Host application configuration
	Host HostConfig `yaml:"host"`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds the optional Redis session store configuration. When
// disabled, sessions live in PostgreSQL.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// HostConfig describes the host application whose users are provisioned
type HostConfig struct {
	Framework    string `yaml:"framework"`
	MajorVersion int    `yaml:"major_version"`
}

// AuthConfig holds login flow configuration
type AuthConfig struct {
	// PublicURL is this service's externally reachable base URL
	PublicURL string `yaml:"public_url"`

	SessionTTL time.Duration `yaml:"session_ttl"`

	// CleanupSchedule is a cron spec for expired-session cleanup
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel `yaml:"-"`

	// LogLevelName is the yaml-facing spelling of LogLevel
	LogLevelName string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// LoadConfig loads configuration: defaults, then the optional YAML file
// named by JANUS_CONFIG_FILE, then environment variable overrides
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("JANUS_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Host: HostConfig{
			Framework: "nextcloud",
		},
		Auth: AuthConfig{
			SessionTTL:      24 * time.Hour,
			CleanupSchedule: "@every 5m",
		},
		Observability: ObservabilityConfig{
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "janus",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides the config with JANUS_* environment variables
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "JANUS_HOST")
	setString(&cfg.Server.Port, "JANUS_PORT")
	setDuration(&cfg.Server.ReadTimeout, "JANUS_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "JANUS_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "JANUS_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "JANUS_SHUTDOWN_TIMEOUT")
	setString(&cfg.Server.HealthPort, "JANUS_HEALTH_PORT")

	setString(&cfg.Database.URL, "JANUS_POSTGRES_URL")
	setInt(&cfg.Database.MaxOpenConns, "JANUS_POSTGRES_MAX_CONNS")
	setInt(&cfg.Database.MaxIdleConns, "JANUS_POSTGRES_IDLE_CONNS")
	setDuration(&cfg.Database.ConnMaxLifetime, "JANUS_POSTGRES_CONN_LIFETIME")

	setBool(&cfg.Redis.Enabled, "JANUS_REDIS_ENABLED")
	setString(&cfg.Redis.Addr, "JANUS_REDIS_ADDR")
	setString(&cfg.Redis.Password, "JANUS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "JANUS_REDIS_DB")

	setString(&cfg.Host.Framework, "JANUS_HOST_FRAMEWORK")
	setInt(&cfg.Host.MajorVersion, "JANUS_HOST_MAJOR_VERSION")

	setString(&cfg.Auth.PublicURL, "JANUS_PUBLIC_URL")
	setDuration(&cfg.Auth.SessionTTL, "JANUS_SESSION_TTL")
	setString(&cfg.Auth.CleanupSchedule, "JANUS_SESSION_CLEANUP_SCHEDULE")

	setString(&cfg.Observability.LogLevelName, "JANUS_LOG_LEVEL")
	setBool(&cfg.Observability.MetricsEnabled, "JANUS_METRICS_ENABLED")
	setBool(&cfg.Observability.OTelEnabled, "JANUS_OTEL_ENABLED")
	setString(&cfg.Observability.OTelEndpoint, "JANUS_OTEL_ENDPOINT")
	setString(&cfg.Observability.OTelServiceName, "JANUS_OTEL_SERVICE_NAME")
	setString(&cfg.Observability.OTelServiceVersion, "JANUS_OTEL_SERVICE_VERSION")
	setBool(&cfg.Observability.OTelInsecure, "JANUS_OTEL_INSECURE")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.PublicURL == "" {
		return fmt.Errorf("public URL is required")
	}
	if !strings.HasPrefix(c.Auth.PublicURL, "http://") && !strings.HasPrefix(c.Auth.PublicURL, "https://") {
		return fmt.Errorf("public URL must be absolute: %s", c.Auth.PublicURL)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setBool(target *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*target = strings.ToLower(value) == "true" || value == "1"
	}
}

func setInt(target *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func setDuration(target *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}
