package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/topgen/pkg/generator"
	"github.com/platinummonkey/topgen/pkg/httputil"
	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/validation"
)

// Server is the topgen HTTP API
type Server struct {
	router    *mux.Router
	handler   http.Handler
	validator *validation.ConfigValidator
	generator *generator.Service
	metrics   *observability.Metrics
	logger    logrus.FieldLogger

	corsOrigins  []string
	maxBodyBytes int64
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithMetrics exposes /metrics and records per-route request metrics
func WithMetrics(metrics *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithLogger sets the request logger
func WithLogger(logger logrus.FieldLogger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSOrigins restricts the origins allowed by CORS
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMaxBodyBytes limits request body size
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates the API server. gen may be nil, in which case the
// generation routes answer 503.
func NewServer(validator *validation.ConfigValidator, gen *generator.Service, opts ...ServerOption) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		validator:    validator,
		generator:    gen,
		corsOrigins:  []string{"*"},
		maxBodyBytes: 10 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.DiscardLogger()
	}

	s.setupRoutes()
	s.handler = httputil.Chain(
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.CORSMiddleware(s.corsOrigins),
		httputil.MaxBytesMiddleware(s.maxBodyBytes),
	)(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(httputil.MetricsMiddleware(s.metrics))
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	NewSystemHandlers(s.validator.Gate()).RegisterRoutes(api)
	NewValidationHandlers(s.validator).RegisterRoutes(api)
	NewGenerationHandlers(s.validator, s.generator).RegisterRoutes(api)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
