package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/janusgate/janus/pkg/api"
	"github.com/janusgate/janus/pkg/audit"
	"github.com/janusgate/janus/pkg/auth"
	"github.com/janusgate/janus/pkg/cas"
	"github.com/janusgate/janus/pkg/config"
	"github.com/janusgate/janus/pkg/observability"
	"github.com/janusgate/janus/pkg/provision"
	"github.com/janusgate/janus/pkg/settings"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := connectDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	var redisClient *redis.Client
	sessions := auth.SessionStore(auth.NewPostgresSessionStore(db))
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		sessions = auth.NewRedisSessionStore(redisClient)
		logger.WithField("addr", cfg.Redis.Addr).Info("Using Redis session store")
	}

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	ctx := context.Background()
	tracerProvider, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// The CAS endpoint configuration lives in the settings table so admins
	// can change it without a redeploy; the process reads it once at boot.
	settingsStore := settings.NewDBStore(db)
	casConfig, err := settings.NewProvider(settingsStore, logger).Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load CAS settings: %v", err)
	}
	logger.WithFields(map[string]interface{}{
		"cas_host":    casConfig.ServerHost,
		"cas_version": string(casConfig.ProtocolVersion),
	}).Info("CAS settings loaded")

	hostVersion := provision.DetectHostVersion(cfg.Host.Framework, cfg.Host.MajorVersion)
	backend := provision.NewBackend(
		hostVersion,
		provision.NewSQLUserManager(db),
		provision.NewSQLGroupManager(db),
		db,
		logger,
		metrics,
	)

	auditStore, err := audit.NewDBStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize audit store: %v", err)
	}

	validator := cas.NewValidator(casConfig, logger)
	authenticator := auth.NewAuthenticator(validator, backend, sessions, logger, metrics)
	authenticator.SessionTTL = cfg.Auth.SessionTTL
	authenticator.Audit = auditStore

	authHandler := auth.NewHandler(authenticator, cfg.Auth.PublicURL, logger, metrics)
	settingsHandler := settings.NewHandler(settingsStore, logger)
	server := api.NewServer(authHandler, settingsHandler, logger, metrics)

	appServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux(db, redisClient, registry),
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Auth.CleanupSchedule, func() {
		defer observability.RecoverPanic(logger, "session cleanup")
		if _, err := authenticator.CleanupExpired(context.Background()); err != nil {
			logger.WithError(err).Error("Session cleanup failed")
		}
	}); err != nil {
		log.Fatalf("Invalid cleanup schedule %q: %v", cfg.Auth.CleanupSchedule, err)
	}
	scheduler.Start()

	shutdown := observability.NewShutdownManager(logger, appServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
		}
		return nil
	})
	if tracerProvider != nil {
		shutdown.RegisterShutdownFunc(tracerProvider.Shutdown)
	}

	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.WithField("addr", appServer.Addr).Info("Starting HTTP server")
		if err := appServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health server")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	if err := group.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func connectDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	return db, nil
}

// healthMux serves liveness, readiness and metrics on the side port so
// they stay off the public listener.
func healthMux(db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry) http.Handler {
	checker := observability.NewHealthChecker(db, redisClient)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if registry != nil {
		mux.Handle("/metrics", observability.Handler(registry))
	}
	return mux
}
