package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/spotter/internal/logging"
	"github.com/claude/spotter/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "Spotter server URL (e.g. https://spotter.tail1234.ts.net)")
	dir := flag.String("path", "", "directory containing Alpha Progression CSV exports")
	apiKey := flag.String("api-key", os.Getenv("SPOTTER_AUTH_API_KEY"), "server API key (defaults to $SPOTTER_AUTH_API_KEY)")
	dryRun := flag.Bool("dry-run", false, "list pending files without sending them")
	history := flag.Bool("history", false, "list previously imported exports and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("spotter-upload", Version)
		return
	}

	log := logging.NewWithWriter(os.Stdout, "info")

	if *history {
		if err := printHistory(); err != nil {
			log.Error("reading export history", "error", err)
			os.Exit(1)
		}
		return
	}

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: spotter-upload -server <URL> -path <export dir> [-api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if (*serverURL == "" || *apiKey == "") && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Error("export directory not found", "path", *dir)
		os.Exit(1)
	}

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(stateDir(homeDir))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Create client (nil-safe in dry-run mode)
	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	} else {
		log.Info("DRY RUN mode: pending files are listed but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := upload.New(client, state, *dir, *dryRun, log).Run(ctx)
	printStats(log, stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		state.Close()
		os.Exit(1)
	}
	if stats.FilesErrored > 0 {
		state.Close()
		os.Exit(1)
	}
	log.Info("upload complete")
}

func printStats(log *slog.Logger, stats *upload.Stats) {
	log.Info("upload stats",
		"files_total", stats.FilesTotal,
		"files_uploaded", stats.FilesUploaded,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sessions_inserted", stats.SessionsInserted,
		"sessions_skipped", stats.SessionsSkipped,
		"sets_inserted", stats.SetsInserted,
	)
}

func stateDir(home string) string {
	return filepath.Join(home, ".spotter-upload")
}

func printHistory() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	state, err := upload.OpenStateDB(stateDir(home))
	if err != nil {
		return err
	}
	defer state.Close()

	exports, err := state.History(context.Background())
	if err != nil {
		return err
	}
	for _, e := range exports {
		fmt.Printf("%s  %-40s  sessions +%d (skipped %d)  sets +%d\n",
			e.SentAt.Local().Format("2006-01-02 15:04"), e.Path,
			e.SessionsInserted, e.SessionsSkipped, e.SetsInserted)
	}
	return nil
}
