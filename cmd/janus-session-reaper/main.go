package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/janusgate/janus/pkg/audit"
	"github.com/janusgate/janus/pkg/auth"
)

// reaperConfig holds the worker configuration
type reaperConfig struct {
	DatabaseURL    string
	Schedule       string
	LogLevel       string
	AuditRetention time.Duration
}

func parseConfig() *reaperConfig {
	config := &reaperConfig{}

	flag.StringVar(&config.DatabaseURL, "database-url", os.Getenv("JANUS_POSTGRES_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.Schedule, "schedule", "@every 5m", "Cron schedule for the cleanup run")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&config.AuditRetention, "audit-retention", 90*24*time.Hour, "How long to keep audit events (0 disables audit cleanup)")

	flag.Parse()

	return config
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func connectDatabase(connectionString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func reapOnce(ctx context.Context, sessions auth.SessionStore, auditStore *audit.DBStore, retention time.Duration, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := sessions.DeleteExpired(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to delete expired sessions")
	} else if removed > 0 {
		logger.WithField("removed", removed).Info("Deleted expired sessions")
	} else {
		logger.Debug("No expired sessions")
	}

	if retention <= 0 {
		return
	}
	purged, err := auditStore.CleanupBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		logger.WithError(err).Error("Failed to purge old audit events")
	} else if purged > 0 {
		logger.WithField("purged", purged).Info("Purged old audit events")
	}
}

func main() {
	config := parseConfig()
	logger := setupLogger(config.LogLevel)

	if config.DatabaseURL == "" {
		logger.Fatal("Database URL is required (-database-url or JANUS_POSTGRES_URL)")
	}

	db, err := connectDatabase(config.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	logger.Info("Database connection established")

	sessions := auth.NewPostgresSessionStore(db)
	auditStore, err := audit.NewDBStore(db)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize audit store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(config.Schedule, func() {
		reapOnce(ctx, sessions, auditStore, config.AuditRetention, logger)
	})
	if err != nil {
		logger.WithError(err).Fatalf("Invalid schedule %q", config.Schedule)
	}

	// one pass at startup so a long outage is repaired immediately
	reapOnce(ctx, sessions, auditStore, config.AuditRetention, logger)

	scheduler.Start()
	logger.WithField("schedule", config.Schedule).Info("Session reaper started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Shutting down")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
}
