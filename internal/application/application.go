package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/sessionconf/internal/api"
	"github.com/eugenenazirov/sessionconf/internal/cachesync"
	"github.com/eugenenazirov/sessionconf/internal/config"
	"github.com/eugenenazirov/sessionconf/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage   storage.Storage
	hub       *cachesync.Hub
	publisher *cachesync.Publisher
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration. The session descriptor from cfg overwrites whatever storage
// held before startup.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	if err := seedStorage(context.Background(), store, cfg); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to apply initial session config: %w", err)
	}

	hub := cachesync.NewHub(logger)
	publisher := cachesync.NewPublisher(store, hub, logger)
	handler := api.NewHandler(store, publisher, api.WithPeers(hub))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage:   store,
		hub:       hub,
		publisher: publisher,
		handler:   handler,
		router:    apiRouter,
		logger:    logger,
		server:    NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

func seedStorage(ctx context.Context, store storage.Storage, cfg config.Config) error {
	if err := store.SetCommands(ctx, cfg.Session.Commands); err != nil {
		return err
	}
	return store.SetNamingService(ctx, cfg.Session.NamingService)
}

// BuildRootHandler mounts the API under /api/ and answers / with a service banner.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("sessionconf: see /api/session\n"))
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Close disconnects cache sync peers and releases storage.
func (a *App) Close() error {
	a.hub.Close()
	if err := a.storage.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
