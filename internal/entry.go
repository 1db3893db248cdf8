// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/projtree/internal/api"
	"github.com/starford/projtree/internal/include"
	"github.com/starford/projtree/internal/index"
	"github.com/starford/projtree/internal/mcpserver"
	"github.com/starford/projtree/internal/models"
	"github.com/starford/projtree/internal/sse"
	"github.com/starford/projtree/internal/treeservice"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// stdout carries the MCP protocol in stdio mode.
	var logOut io.Writer = os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_path", cfg.Project.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("mcp", app.mcp),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svcOpts := []treeservice.Option{
		treeservice.WithIndex(db),
		treeservice.WithLogger(logger),
		treeservice.WithResolverOptions(
			include.WithMaxParentTraversal(cfg.Resolve.MaxParentTraversal),
			include.WithConcurrency(cfg.Resolve.GlobConcurrency),
		),
		treeservice.WithReloadLimit(cfg.Reload.Rate, cfg.Reload.Burst),
		treeservice.WithReloadHook(func(snap *models.Snapshot) {
			broker.PublishReload(snap.ReloadID, len(snap.Entries), len(snap.Diagnostics))
		}),
	}
	if cfg.Project.FiltersPath != "" {
		svcOpts = append(svcOpts, treeservice.WithFiltersPath(cfg.Project.FiltersPath))
	}
	svc, err := treeservice.New(cfg.Project.Path, svcOpts...)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	// Serve the last persisted tree until the first reload completes.
	if err := svc.Restore(); err != nil {
		logger.Warn("restore failed", slog.String("error", err.Error()))
	}
	if _, _, err := svc.Reload(ctx, true); err != nil {
		logger.Warn("initial reload failed", slog.String("error", err.Error()))
	}

	if app.mcp {
		return runMCP(ctx, cfg, app.version, svc, logger)
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Snapshot(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"loading"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		startWatcher(gCtx, g, cfg, svc, broker, logger)
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// runMCP serves the MCP tools on stdio. The watcher keeps the tree fresh
// while the client is connected.
func runMCP(ctx context.Context, cfg *Config, version string, svc *treeservice.Service, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.Watch.Enabled {
		startWatcher(gCtx, g, cfg, svc, nil, logger)
	}

	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server starting on stdio")
		if err := mcpserver.New(svc, version).ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// startWatcher watches the project directory and reloads on change.
// Changes are coalesced: at most one reload is pending at a time.
func startWatcher(ctx context.Context, g *errgroup.Group, cfg *Config, svc *treeservice.Service, broker *sse.Broker, logger *slog.Logger) {
	pending := make(chan struct{}, 1)

	ignore := []string{}
	if p, err := filepath.Abs(cfg.SQLite.Path); err == nil {
		ignore = append(ignore, p)
	}

	g.Go(func() error {
		err := index.Watch(ctx, svc.BasePath(), index.WatchOptions{
			Debounce: cfg.Watch.Debounce,
			Ignore:   ignore,
		}, logger, func(paths []string) {
			if broker != nil {
				broker.PublishChange(paths)
			}
			select {
			case pending <- struct{}{}:
			default:
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("watcher: stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-pending:
			}
			// Globs can match new files without the project file changing.
			if _, _, err := svc.Reload(ctx, true); err != nil && ctx.Err() == nil {
				logger.Warn("service: reload failed", slog.String("error", err.Error()))
			}
		}
	})

}
