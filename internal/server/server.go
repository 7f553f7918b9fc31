// Package server provides the HTTP server and routing for the risk engine.
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

	"github.com/vekfolio/riskengine/internal/config"
	"github.com/vekfolio/riskengine/internal/database"
	"github.com/vekfolio/riskengine/internal/events"
	"github.com/vekfolio/riskengine/internal/marketdata"
	"github.com/vekfolio/riskengine/internal/portfolio"
	"github.com/vekfolio/riskengine/internal/risk"
)

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	Config      *config.Config
	PortfolioDB *database.DB
	HistoryDB   *database.DB
	CacheDB     *database.DB

	Engine    *risk.Engine
	Positions *portfolio.Repository
	Prices    *marketdata.Repository
	SyncJob   *marketdata.SyncJob
	Jobs      JobRunner
	Bus       *events.Bus
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    *config.Config

	portfolioDB *database.DB
	historyDB   *database.DB
	cacheDB     *database.DB

	riskHandlers      *RiskHandlers
	portfolioHandlers *PortfolioHandlers
	pricesHandlers    *PricesHandlers
	systemHandlers    *SystemHandlers
	eventsHandler     *EventsHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()

	s := &Server{
		router:      chi.NewRouter(),
		log:         log,
		cfg:         cfg.Config,
		portfolioDB: cfg.PortfolioDB,
		historyDB:   cfg.HistoryDB,
		cacheDB:     cfg.CacheDB,
		riskHandlers: NewRiskHandlers(
			cfg.Engine, cfg.Positions, cfg.Prices, cfg.Bus, cfg.Config, cfg.Log),
		portfolioHandlers: NewPortfolioHandlers(cfg.Positions, cfg.Bus, cfg.Log),
		pricesHandlers:    NewPricesHandlers(cfg.Prices, cfg.SyncJob, cfg.Log),
		systemHandlers: NewSystemHandlers(
			cfg.Config.DataDir,
			map[string]*database.DB{
				"portfolio": cfg.PortfolioDB,
				"history":   cfg.HistoryDB,
				"cache":     cfg.CacheDB,
			},
			cfg.Jobs,
			cfg.Log,
		),
		eventsHandler: NewEventsHandler(cfg.Bus, cfg.Log),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
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
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Events stream must register before other routes so the upgrade
		// request bypasses the compression middleware path
		r.Get("/events/ws", s.eventsHandler.HandleWebSocket)

		s.riskHandlers.RegisterRoutes(r)
		s.portfolioHandlers.RegisterRoutes(r)
		s.pricesHandlers.RegisterRoutes(r)
		s.systemHandlers.RegisterRoutes(r)
	})
}

// handleHealth reports liveness plus a quick database ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, db := range []*database.DB{s.portfolioDB, s.historyDB, s.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.QuickCheck(ctx); err != nil {
			s.log.Error().Err(err).Str("database", db.Name()).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": db.Name(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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

// Router exposes the mux for tests.
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
