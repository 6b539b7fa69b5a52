// Package httputil provides HTTP utilities for standardized responses and
// common middleware.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteBadRequest(w, "invalid input")
//	httputil.WriteUnauthorized(w, "session expired")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/auth: session-enforcing middleware
//   - pkg/observability: the logger and request ID context helpers
package httputil
