package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/database"
	"github.com/flipsight/flipsight/internal/events"
)

// RouteRegistrar mounts a module's routes on a router. Each module's
// handlers subpackage satisfies this.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DevMode bool
	Version string

	FlipsDB   *database.DB
	CatalogDB *database.DB
	Bus       *events.Bus

	Items     RouteRegistrar
	Flips     RouteRegistrar
	Blocklist RouteRegistrar
	Charts    RouteRegistrar
	Forecast  RouteRegistrar

	// Query and Assistant register relative paths and share the /query
	// prefix: the pipeline owns /understand, /ask and /refine, the SQL
	// assistant owns /sql and /sql/run.
	Query     RouteRegistrar
	Assistant RouteRegistrar
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       Config
	hub       *wsHub
	startedAt time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg,
		startedAt: time.Now(),
	}

	if cfg.Bus != nil {
		s.hub = newWSHub(cfg.Bus, s.log)
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		mount(r, s.cfg.Items)
		mount(r, s.cfg.Flips)
		mount(r, s.cfg.Blocklist)
		mount(r, s.cfg.Charts)
		mount(r, s.cfg.Forecast)

		if s.cfg.Query != nil || s.cfg.Assistant != nil {
			r.Route("/query", func(r chi.Router) {
				mount(r, s.cfg.Query)
				mount(r, s.cfg.Assistant)
			})
		}

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		if s.hub != nil {
			r.Get("/events/ws", s.hub.handleWS)
		}
	})
}

// mount registers a module's routes when the module is wired. Nil modules
// (disabled in config, or absent in tests) are simply skipped.
func mount(r chi.Router, reg RouteRegistrar) {
	if reg != nil {
		reg.RegisterRoutes(r)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	if s.hub != nil {
		s.hub.close()
	}
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
