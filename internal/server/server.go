package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ziadkadry99/folio/internal/contact"
	"github.com/ziadkadry99/folio/internal/db"
	"github.com/ziadkadry99/folio/internal/imagecache"
	"github.com/ziadkadry99/folio/internal/stackfx"
)

// Config holds server configuration.
type Config struct {
	Port     int
	SiteDir  string // static site served at /
	AllowAll bool   // allow all CORS origins (dev mode)

	Deck      stackfx.Params
	Cards     int // deck size used when a request does not name one
	FrameRate int // frames per second for /ws/deck
}

// Server serves the static site and the runtime APIs behind it.
type Server struct {
	cfg        Config
	db         *db.DB
	cache      *imagecache.Cache
	contacts   *contact.Store
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. cache may be nil, which disables /api/images.
func New(cfg Config, database *db.DB, cache *imagecache.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Deck.StickyOffset == 0 && cfg.Deck.ArrivalWindow == 0 {
		cfg.Deck = stackfx.DefaultParams()
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 60
	}
	s := &Server{
		cfg:    cfg,
		db:     database,
		cache:  cache,
		logger: logger,
	}
	if database != nil {
		s.contacts = contact.NewStore(database)
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// The websocket stream must not sit behind the request timeout.
	r.Get("/ws/deck", s.handleDeckStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/api/deck", s.handleDeck)
		if s.cache != nil {
			r.Get("/api/images/*", s.handleImage)
			r.Get("/api/cache/stats", s.handleCacheStats)
		}
		if s.contacts != nil {
			contact.RegisterRoutes(r, s.contacts, s.logger)
		}
	})

	if s.cfg.SiteDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.SiteDir)))
	}
	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// ServerConfig returns the server configuration.
func (s *Server) ServerConfig() Config { return s.cfg }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("folio server listening", "addr", addr, "site", s.cfg.SiteDir)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs each request through slog once it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
