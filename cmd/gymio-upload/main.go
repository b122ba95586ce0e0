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
	"time"

	"github.com/claude/gymio/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "Gymio server URL (e.g. https://gymio.tail1234.ts.net)")
	planPath := flag.String("path", "", "path to the CSV plan")
	login := flag.String("login", "", "user login the plan belongs to")
	apiKey := flag.String("api-key", os.Getenv("GYMIO_AUTH_API_KEY"), "server API key (defaults to $GYMIO_AUTH_API_KEY)")
	dryRun := flag.Bool("dry-run", false, "validate the plan but don't send it")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("gymio-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *planPath == "" || (*login == "" && !*dryRun) {
		fmt.Fprintf(os.Stderr, "Usage: gymio-upload -server <URL> -path <plan.csv> -login <user> [-api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if (*serverURL == "" || *apiKey == "") && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".gymio-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Create client (nil in dry-run mode)
	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := upload.New(client, state, *login, *dryRun, log).Run(ctx, *planPath, time.Now())
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}
	printStats(stats)
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Week starting:    %s\n", stats.WeekStartDate)
	switch {
	case stats.Skipped:
		fmt.Println("  Status:           skipped (already uploaded this week)")
	case stats.DryRun:
		fmt.Println("  Status:           dry run")
	default:
		fmt.Println("  Status:           uploaded")
	}
	if r := stats.Result; r != nil {
		fmt.Printf("  Days:             %d\n", r.DaysStored)
		fmt.Printf("  Sets:             %d\n", r.SetsStored)
		fmt.Printf("  Rows skipped:     %d\n", r.RowsSkipped)
		fmt.Printf("  Rows defaulted:   %d\n", r.RowsDefaulted)
	}
	fmt.Println()
}
