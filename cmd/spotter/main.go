package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/spotter"
	"github.com/claude/spotter/internal/config"
	"github.com/claude/spotter/internal/ingest/alpha"
	"github.com/claude/spotter/internal/library"
	"github.com/claude/spotter/internal/logging"
	spottermcp "github.com/claude/spotter/internal/mcp"
	"github.com/claude/spotter/internal/metrics"
	"github.com/claude/spotter/internal/server"
	"github.com/claude/spotter/internal/storage"
	"github.com/claude/spotter/internal/trends"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()
	log.Info("Spotter starting", "version", Version)

	if err := run(cfg, *migrateOnly, log); err != nil {
		log.Error("fatal", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, migrateOnly bool, log *slog.Logger) error {
	// Run migrations
	if err := storage.Migrate(cfg.Storage, spotter.MigrationsFS); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("migrations applied", "driver", cfg.Storage.Driver)

	if migrateOnly {
		log.Info("migrate-only: exiting")
		return nil
	}

	// Connect database
	ctx := context.Background()
	arena, err := storage.Connect(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer arena.Close()
	log.Info("database connected", "exercises", arena.CountExercises())

	// Seed the exercise library on first run. Failures leave the library empty.
	if n, err := library.Seed(ctx, arena, bytes.NewReader(spotter.DefaultExercises), time.Now(), log); err != nil {
		log.Warn("exercise seed failed", "error", err)
	} else if n > 0 {
		log.Info("exercise library seeded", "exercises", n)
	}

	m := metrics.New()
	alphaProvider := alpha.NewProvider(arena, log, time.Now)
	srv := server.New(arena, cfg.Training, alphaProvider, m, cfg.Auth.APIKey, log)

	// MCP over streamable HTTP, sharing the server's lock on the arena.
	cal := trends.Calendar{First: cfg.Training.FirstWeekday(), Location: cfg.Training.Location()}
	mcpSrv := spottermcp.New(spottermcp.NewLocal(arena, cal, srv.Locker()), Version, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server on tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			return fmt.Errorf("tsnet start failed: %w", err)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen failed: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s failed: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
	return nil
}
