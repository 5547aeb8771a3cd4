// Package api exposes the validator over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gofhir/conformance/engine"
	"github.com/gofhir/conformance/pkg/logger"
)

// Server represents the API server.
type Server struct {
	router   chi.Router
	handlers *Handlers
	gatherer prometheus.Gatherer
	origins  []string
	log      *logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithCORSOrigins restricts the allowed CORS origins.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer creates a new API server around v.
func NewServer(v *engine.Validator, opts ...ServerOption) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		handlers: NewHandlers(v),
		gatherer: prometheus.DefaultGatherer,
		origins:  []string{"*"},
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("api")

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/validate", s.handlers.Validate)
		r.Post("/validate/profile", s.handlers.ValidateProfile)
		r.Post("/validate/batch", s.handlers.ValidateBatch)

		r.Get("/resource-types", s.handlers.ResourceTypes)
		r.Get("/profile/{resourceType}", s.handlers.Profile)
		r.Get("/server-info", s.handlers.ServerInfo)
		r.Get("/health", s.handlers.HealthCheck)
	})
}

// requestLogger logs one line per request through the service logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.log.Info("%s %s %d %dB in %s [%s]",
				r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

// Router returns the chi router.
func (s *Server) Router() http.Handler {
	return s.router
}
