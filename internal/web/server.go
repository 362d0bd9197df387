// Package web serves the reconciliation HTTP API: job lifecycle, the review
// queue, suggestions for the unmatched pools, enrichment round trips and
// snapshot exports.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/poi-recon/internal/cache"
	"github.com/poi-recon/internal/match"
	"github.com/poi-recon/internal/session"
	"github.com/poi-recon/internal/suggest"
	"github.com/poi-recon/internal/web/handlers"
	"github.com/poi-recon/internal/web/middleware"
)

const snapshotTTL = 15 * time.Minute

// Server represents the web server
type Server struct {
	config     *Config
	env        *handlers.Env
	cacheDB    *cache.Store
	httpServer *http.Server
	router     *mux.Router
	log        *zap.Logger
}

// NewServer creates a new web server instance. cachePath may be empty, in
// which case the unmatched memory cache is in-memory only.
func NewServer(config *Config, store *session.Store, settings match.Settings, cachePath string, log *zap.Logger) (*Server, error) {
	var cacheDB *cache.Store
	var entries []cache.Entry
	if cachePath != "" {
		db, err := cache.OpenStore(cachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open unmatched cache: %w", err)
		}
		entries, err = db.Load()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to load unmatched cache: %w", err)
		}
		cacheDB = db
	}

	handlerConfig := &handlers.Config{}
	handlerConfig.Features.ExportEnabled = config.Features.ExportEnabled
	handlerConfig.Features.ManualOverrideEnabled = config.Features.ManualOverrideEnabled

	server := &Server{
		config:  config,
		cacheDB: cacheDB,
		log:     log,
		env: &handlers.Env{
			Store:     store,
			Cache:     cache.New(entries),
			CacheDB:   cacheDB,
			Scorer:    match.NewScorer(settings),
			Settings:  settings,
			Snapshots: handlers.NewSnapshotTable(snapshotTTL),
			Config:    handlerConfig,
			Log:       log,
		},
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	jobsHandler := &handlers.JobsHandler{Env: s.env}
	reviewHandler := &handlers.ReviewHandler{Env: s.env}
	unmatchedHandler := &handlers.UnmatchedHandler{
		Env:       s.env,
		Suggester: suggest.NewDeterministic(s.env.Cache),
	}
	enrichHandler := &handlers.EnrichHandler{Env: s.env}
	exportHandler := &handlers.ExportHandler{Env: s.env}
	apiHandler := &handlers.APIHandler{Env: s.env}

	api := s.router.PathPrefix("/api").Subrouter()

	// Job lifecycle and matching
	api.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs", jobsHandler.CreateJob).Methods("POST")
	api.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/data", jobsHandler.SetData).Methods("PUT")
	api.HandleFunc("/jobs/{id}/match", jobsHandler.RunMatch).Methods("POST")
	api.HandleFunc("/jobs/{id}/matches", jobsHandler.ListMatches).Methods("GET")

	// Review queue
	api.HandleFunc("/jobs/{id}/review", reviewHandler.GetCurrent).Methods("GET")
	api.HandleFunc("/jobs/{id}/review/{index:[0-9]+}", reviewHandler.Act).Methods("POST")

	// Unmatched pools
	api.HandleFunc("/jobs/{id}/unmatched", jobsHandler.GetUnmatched).Methods("GET")
	api.HandleFunc("/jobs/{id}/unmatched/{entityId}/suggestions", unmatchedHandler.GetSuggestions).Methods("GET")
	api.HandleFunc("/jobs/{id}/link", unmatchedHandler.Link).Methods("POST")
	api.HandleFunc("/jobs/{id}/flag", unmatchedHandler.Flag).Methods("POST")

	// Enrichment round trip
	api.HandleFunc("/jobs/{id}/enrichment/projection", enrichHandler.GetProjection).Methods("GET")
	api.HandleFunc("/jobs/{id}/enrichment/patches", enrichHandler.UploadPatches).Methods("POST")

	// Snapshot export (if enabled)
	if s.config.Features.ExportEnabled {
		api.HandleFunc("/jobs/{id}/snapshots", exportHandler.CreateSnapshot).Methods("POST")
		api.HandleFunc("/snapshots/{token}", exportHandler.GetSnapshot).Methods("GET")
	}

	// Statistics and cache inspection
	api.HandleFunc("/stats", apiHandler.GetStats).Methods("GET")
	api.HandleFunc("/jobs/{id}/stats", apiHandler.GetJobStats).Methods("GET")
	api.HandleFunc("/cache", apiHandler.GetCache).Methods("GET")

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(s.log))
}

// Start starts the web server and blocks until interrupted.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.log.Info("server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", zap.Error(err))
		}
	}()

	<-stop
	s.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("server shutdown error", zap.Error(err))
	}

	if s.cacheDB != nil {
		if err := s.cacheDB.Replace(s.env.Cache.Entries()); err != nil {
			s.log.Error("cache persist error", zap.Error(err))
		}
		if err := s.cacheDB.Close(); err != nil {
			s.log.Error("cache close error", zap.Error(err))
		}
	}

	s.log.Info("server stopped")
	return nil
}
