// Package server provides the HTTP server and routing for StockPulse.
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

	"github.com/stockpulse/stockpulse/internal/database"
)

// RouteRegistrar is implemented by module handlers that mount their own
// routes on the router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	Port     int
	DevMode  bool
	DataDir  string
	Handlers []RouteRegistrar

	MarketDB   *database.DB
	AnalysisDB *database.DB
	CacheDB    *database.DB
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	databases      map[string]*database.DB
	systemHandlers *SystemHandlers
	port           int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	databases := map[string]*database.DB{
		"market":   cfg.MarketDB,
		"analysis": cfg.AnalysisDB,
		"cache":    cfg.CacheDB,
	}

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		databases:      databases,
		systemHandlers: NewSystemHandlers(cfg.DataDir, databases, cfg.Log),
		port:           cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Handlers)

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
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// The tasks websocket endpoint holds its connection open, everything
	// else finishes well within the minute
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(handlers []RouteRegistrar) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/system", func(r chi.Router) {
		r.Get("/status", s.systemHandlers.HandleSystemStatus)
		r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
	})

	for _, handler := range handlers {
		handler.RegisterRoutes(s.router)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
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
