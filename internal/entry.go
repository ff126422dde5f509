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

	"golang.org/x/sync/errgroup"

	"github.com/starford/lumen/internal/client"
	"github.com/starford/lumen/internal/fakeapi"
	"github.com/starford/lumen/internal/logging"
	"github.com/starford/lumen/internal/mcpserver"
	"github.com/starford/lumen/internal/tui"
)

var errConfigRequired = errors.New("config is required")

// SetupLogging installs the process logger. File-backed logging is used by
// the interactive and MCP modes, where stdout is not free.
func SetupLogging(cfg *Config, toFile bool, stderr io.Writer) (*slog.Logger, io.Closer) {
	p := logging.Params{
		Level:  cfg.App.LogLevel,
		Stderr: stderr,
	}
	if toFile {
		p.FileName = cfg.App.LogFile
		p.MaxSizeMB = cfg.App.LogMaxSizeMB
		p.MaxBackups = cfg.App.LogMaxBackups
	}
	return logging.Setup(p)
}

// NewClient builds a notes API client from the configuration.
func NewClient(cfg *Config, logger *slog.Logger) (*client.Client, error) {
	c, err := client.New(cfg.API.BaseURL,
		client.WithTimeout(cfg.API.Timeout),
		client.WithUserAgent(cfg.API.UserAgent),
		client.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("init client: %w", err)
	}
	return c, nil
}

// RunTUI starts the interactive terminal UI.
func RunTUI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := NewClient(app.config, app.logger)
	if err != nil {
		return err
	}

	app.logger.Info("Starting TUI", slog.String("api_url", c.BaseURL()))
	if err := tui.Run(ctx, c, app.config.Images.PublicURLTemplate, app.logger); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout until the input closes or ctx
// is cancelled.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := NewClient(app.config, app.logger)
	if err != nil {
		return err
	}

	app.logger.Info("Starting MCP server", slog.String("api_url", c.BaseURL()))
	srv := mcpserver.New(c, app.config.Images.PublicURLTemplate)
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

// ServeFakeAPI runs the fake notes API until a shutdown signal arrives or ctx
// is cancelled.
func ServeFakeAPI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config.FakeAPI
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.HTTP.Address()),
		slog.String("data_dir", cfg.DataDir),
		slog.String("public_url", cfg.BaseURL()),
		slog.String("log_level", app.config.App.LogLevel.String()))

	srv, err := fakeapi.New(cfg.DataDir,
		fakeapi.WithLogger(logger),
		fakeapi.WithPublicURL(cfg.PublicURL),
	)
	if err != nil {
		return fmt.Errorf("init fake api: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
