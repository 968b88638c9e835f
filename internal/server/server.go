// Package server provides the HTTP server and routing for Folio.
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

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/analysis"
	analysishandlers "github.com/aristath/folio/internal/modules/analysis/handlers"
	"github.com/aristath/folio/internal/modules/charts"
	chartshandlers "github.com/aristath/folio/internal/modules/charts/handlers"
	"github.com/aristath/folio/internal/modules/dividends"
	dividendhandlers "github.com/aristath/folio/internal/modules/dividends/handlers"
	"github.com/aristath/folio/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/folio/internal/modules/portfolio/handlers"
	"github.com/aristath/folio/internal/scheduler"
)

// Pinger verifies a database connection is alive
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Config holds everything the HTTP server needs to route requests
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Port      int
	DevMode   bool
	Health    Pinger
	Positions *portfolio.PositionRepository
	Portfolio *portfolio.PortfolioService
	Analysis  *analysis.Service
	Dividends *dividends.Service
	Charts    *charts.Service
	Scheduler *scheduler.Scheduler
	Databases []StatsSource
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	health         Pinger
	positions      *portfolio.PositionRepository
	portfolio      *portfolio.PortfolioService
	analysis       *analysis.Service
	dividends      *dividends.Service
	charts         *charts.Service
	systemHandlers *SystemHandlers
	streamHandler  *StreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		health:    cfg.Health,
		positions: cfg.Positions,
		portfolio: cfg.Portfolio,
		analysis:  cfg.Analysis,
		dividends: cfg.Dividends,
		charts:    cfg.Charts,
	}

	s.systemHandlers = NewSystemHandlers(cfg.Config.DataDir, cfg.Databases, cfg.Scheduler, cfg.Log)

	streamInterval := time.Duration(cfg.Config.StreamIntervalSeconds) * time.Second
	s.streamHandler = NewStreamHandler(cfg.Portfolio, streamInterval, cfg.Log)

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
		ExposedHeaders:   []string{"Link"},
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
	s.router.Route("/api/v1", func(r chi.Router) {
		// Portfolio module (holdings, valuation, summary)
		portfolioHandler := portfoliohandlers.NewHandler(s.positions, s.portfolio, s.log)
		portfolioHandler.RegisterRoutes(r)

		// Websocket stream lives under the portfolio namespace but is not
		// part of the JSON handler set, the upgrade bypasses the envelope
		r.Get("/portfolio/stream", s.streamHandler.ServeHTTP)

		// Analysis module (risk, performance)
		analysisHandler := analysishandlers.NewHandler(s.analysis, s.log)
		analysisHandler.RegisterRoutes(r)

		// Dividends module
		dividendHandler := dividendhandlers.NewHandler(s.dividends, s.log)
		dividendHandler.RegisterRoutes(r)

		// Charts module
		chartsHandler := chartshandlers.NewHandler(s.charts, s.log)
		chartsHandler.RegisterRoutes(r)

		// System monitoring and job triggers
		s.systemHandlers.RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi mux, used by tests to drive requests without
// binding a port
func (s *Server) Router() http.Handler {
	return s.router
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
