package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/claude/spotter"
	"github.com/claude/spotter/internal/config"
	"github.com/claude/spotter/internal/logging"
	spottermcp "github.com/claude/spotter/internal/mcp"
	"github.com/claude/spotter/internal/storage"
	"github.com/claude/spotter/internal/trends"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// spotter-mcp serves the MCP tools over stdio. With -url it reads from a
// running Spotter server; otherwise it opens the configured database.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	baseURL := flag.String("url", "", "Spotter server URL, e.g. http://spotter.tailnet.ts.net (remote mode)")
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	log := logging.NewWithWriter(os.Stderr, "info")

	var ds spottermcp.DataSource
	if *baseURL != "" {
		ds = spottermcp.NewHTTPClient(*baseURL)
		log.Info("remote mode", "url", *baseURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		log = logging.NewWithWriter(os.Stderr, cfg.Log.Level)

		if err := storage.Migrate(cfg.Storage, spotter.MigrationsFS); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		arena, err := storage.Connect(context.Background(), cfg.Storage)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer arena.Close()

		cal := trends.Calendar{First: cfg.Training.FirstWeekday(), Location: cfg.Training.Location()}
		ds = spottermcp.NewLocal(arena, cal, nil)
		log.Info("local mode", "driver", cfg.Storage.Driver)
	}

	if err := mcpserver.ServeStdio(spottermcp.New(ds, Version, log)); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
