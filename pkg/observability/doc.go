// Package observability provides structured logging, Prometheus metrics,
// health checks, and OpenTelemetry tracing for the janus service.
//
// # Structured Logging
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("principal", uid).Info("session established")
//
// # Prometheus Metrics
//
// Authentication metrics:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.TicketValidationsTotal.WithLabelValues("3.0", "success").Inc()
//	metrics.LoginAttemptsTotal.WithLabelValues("authenticated").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	mux.HandleFunc("/healthz", checker.Liveness)
//	mux.HandleFunc("/readyz", checker.Readiness)
//
// # Tracing
//
// Optional OTLP trace export:
//
//	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "janus",
//	}, logger)
//	defer tp.Shutdown(ctx)
package observability
