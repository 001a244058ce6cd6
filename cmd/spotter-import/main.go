package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/spotter"
	"github.com/claude/spotter/internal/config"
	"github.com/claude/spotter/internal/ingest"
	"github.com/claude/spotter/internal/ingest/alpha"
	"github.com/claude/spotter/internal/logging"
	"github.com/claude/spotter/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("file", "", "path to Alpha Progression CSV export (required)")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: spotter-import -config config.yaml -file export.csv\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.NewWithWriter(os.Stdout, cfg.Log.Level)

	if err := run(cfg, *csvPath, log); err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete")
}

func run(cfg *config.Config, csvPath string, log *slog.Logger) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// Run migrations
	if err := storage.Migrate(cfg.Storage, spotter.MigrationsFS); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	// Connect database
	arena, err := storage.Connect(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer arena.Close()
	log.Info("database connected")

	result, err := alpha.NewProvider(arena, log, time.Now).Ingest(ctx, f)
	if err != nil {
		return err
	}
	printResult(log, result)
	return nil
}

func printResult(log *slog.Logger, r *ingest.Result) {
	log.Info("import stats",
		"sessions_received", r.SessionsReceived,
		"sessions_inserted", r.SessionsInserted,
		"sessions_skipped", r.SessionsSkipped,
		"sets_received", r.SetsReceived,
		"sets_inserted", r.SetsInserted,
		"exercises_created", r.ExercisesCreated,
	)
	if r.Message != "" {
		log.Info(r.Message)
	}
}
