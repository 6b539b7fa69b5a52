// Package config provides application configuration management.
//
// # Overview
//
// Configuration is loaded in three layers: built-in defaults, then an
// optional YAML file named by JANUS_CONFIG_FILE, then JANUS_* environment
// variable overrides. The result is validated before use.
//
// # Configuration Structure
//
// Server settings:
//
//	JANUS_HOST="0.0.0.0"
//	JANUS_PORT="8080"
//	JANUS_HEALTH_PORT="9090"
//	JANUS_READ_TIMEOUT="15s"
//	JANUS_WRITE_TIMEOUT="15s"
//
// Database and session store settings:
//
//	JANUS_POSTGRES_URL="postgres://localhost/janus"
//	JANUS_POSTGRES_MAX_CONNS="25"
//	JANUS_REDIS_ENABLED="true"
//	JANUS_REDIS_ADDR="localhost:6379"
//
// Authentication settings:
//
//	JANUS_PUBLIC_URL="https://files.example.com"
//	JANUS_SESSION_TTL="24h"
//	JANUS_SESSION_CLEANUP_SCHEDULE="@every 5m"
//	JANUS_HOST_FRAMEWORK="nextcloud"
//	JANUS_HOST_MAJOR_VERSION="27"
//
// Observability settings:
//
//	JANUS_LOG_LEVEL="info"  # debug, info, warn, error
//	JANUS_METRICS_ENABLED="true"
//	JANUS_OTEL_ENABLED="true"
//	JANUS_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// # Related Packages
//
//   - pkg/settings: the persisted authentication protocol configuration
//   - pkg/observability: uses the observability configuration
package config
