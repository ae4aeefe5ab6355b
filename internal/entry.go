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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/platelog/internal/api"
	"github.com/starford/platelog/internal/journal"
	"github.com/starford/platelog/internal/mcpserver"
	"github.com/starford/platelog/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. Stdout carries the MCP transport
	// in stdio mode.
	var logOut io.Writer = os.Stdout
	if app.stdioMCP {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("sync_path", cfg.Sync.Path),
		slog.String("data_dir", cfg.Photos.Dir),
		slog.Int64("free_limit", cfg.Gate.FreeLimit),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var broker *sse.Broker
	var notifier journal.Notifier
	if !app.stdioMCP {
		broker = sse.NewBroker(sse.WithRefreshInterval(2 * time.Second))
		defer broker.Close()
		notifier = broker
	}

	c, err := buildJournal(ctx, cfg, app.entitlement, notifier, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	g, gCtx := errgroup.WithContext(ctx)

	// Propagate changes made by other devices.
	if c.syncDB != nil {
		g.Go(func() error {
			return c.syncDB.Watch(gCtx)
		})
	}
	stopCounter := c.svc.WatchCounter(gCtx)
	defer stopCounter()

	// Mirror photos to remote storage.
	if c.uploader != nil {
		g.Go(func() error {
			return c.uploader.Run(gCtx)
		})
	}

	if app.stdioMCP {
		g.Go(func() error {
			logger.Info("Starting MCP server on stdio")
			if err := mcpserver.New(c.svc).ServeStdio(); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			// Stop the watchers and the uploader with the server.
			return context.Canceled
		})
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Application error", slog.String("error", err.Error()))
			return err
		}
		logger.Info("MCP server stopped")
		return nil
	}

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Start HTTP server.
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

		var sig os.Signal
		select {
		case sig = <-quit:
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
		c.svc.Flush(shutdownCtx)

		// Stop the watchers and the uploader with the server.
		if sig != nil {
			return context.Canceled
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
