package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/janusgate/janus/pkg/auth"
	"github.com/janusgate/janus/pkg/httputil"
	"github.com/janusgate/janus/pkg/observability"
	"github.com/janusgate/janus/pkg/settings"
)

const maxRequestBytes = 1 << 20

// Server represents the API server
type Server struct {
	router   *mux.Router
	auth     *auth.Handler
	settings *settings.Handler
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewServer creates the API server and mounts all routes
func NewServer(authHandler *auth.Handler, settingsHandler *settings.Handler, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		auth:     authHandler,
		settings: settingsHandler,
		logger:   logger,
		metrics:  metrics,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(s.instrument)
	}

	s.auth.RegisterRoutes(s.router)
	s.settings.RegisterRoutes(s.router)

	// session introspection for the logged-in browser
	s.router.Handle("/whoami", s.auth.RequireSession(http.HandlerFunc(s.whoami))).Methods(http.MethodGet)
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	chained := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(maxRequestBytes),
	)(s.router)
	return otelhttp.NewHandler(chained, "janus")
}

// ServeHTTP implements http.Handler without the middleware chain; tests
// and embedding callers use Handler for the full stack
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrument records request metrics under the mux route template so
// parameterized paths share one label value
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		s.metrics.InstrumentHandler(path, next).ServeHTTP(w, r)
	})
}

// whoami reports the authenticated principal, if any
func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	principal := observability.GetPrincipal(r.Context())
	if principal == "" {
		httputil.WriteUnauthorized(w, "not authenticated")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"uid": principal})
}
