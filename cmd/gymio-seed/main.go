package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/claude/gymio/internal/config"
	"github.com/claude/gymio/internal/ingest"
	"github.com/claude/gymio/internal/ingest/csvplan"
	"github.com/claude/gymio/internal/logging"
	"github.com/claude/gymio/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	planPath := flag.String("path", "", "path to the CSV plan (defaults to plan.csv_path)")
	login := flag.String("login", "", "user login to store the week for (required unless -dry-run)")
	dryRun := flag.Bool("dry-run", false, "parse and report without writing to the database")
	migrationsDir := flag.String("migrations", "migrations", "path to migrations directory")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log, closer := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, MaxSizeMB: cfg.Log.MaxSizeMB})
	defer closer.Close()

	if *planPath == "" {
		*planPath = cfg.Plan.CSVPath
	}
	if *planPath == "" || (*login == "" && !*dryRun) {
		fmt.Fprintf(os.Stderr, "Usage: gymio-seed -config config.yaml -path rutina_planificada.csv -login <user> [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	loc, err := cfg.Plan.Location()
	if err != nil {
		log.Error("invalid plan timezone", "error", err)
		os.Exit(1)
	}
	now := time.Now().In(loc)

	f, err := os.Open(*planPath)
	if err != nil {
		log.Error("failed to open plan", "path", *planPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	preview, parsed, err := csvplan.Preview(f, now)
	if err != nil {
		log.Error("plan rejected", "path", *planPath, "error", err)
		os.Exit(1)
	}
	printRows(parsed)

	if *dryRun {
		log.Info("DRY RUN mode: nothing written to the database")
		printResult(preview)
		return
	}

	dsn := cfg.Database.DSN()
	if _, err := storage.RunMigrations(dsn, *migrationsDir); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn, storage.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	uid, err := db.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	start := time.Now()
	result, err := csvplan.NewProvider(db, log).SeedFile(ctx, *planPath, uid, now)
	logImport(ctx, db, log, uid, result, err, time.Since(start))
	if err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
	printResult(result)
}

// printRows reports every row that was skipped or fell back to a default.
func printRows(parsed *csvplan.Result) {
	fmt.Println()
	fmt.Println("=== Row Report ===")
	clean := true
	for _, row := range parsed.Rows {
		var notes []string
		if row.Skipped {
			notes = append(notes, "skipped: "+row.SkipReason)
		}
		if row.RepsDefaulted {
			notes = append(notes, "reps defaulted")
		}
		if row.SetsFromSeries {
			notes = append(notes, "sets from series")
		}
		if row.SeriesIgnored {
			notes = append(notes, "series ignored")
		}
		if row.RestDefaulted {
			notes = append(notes, "rest defaulted")
		}
		if row.ImageDefaulted {
			notes = append(notes, "image defaulted")
		}
		if row.VideoDropped {
			notes = append(notes, "video dropped")
		}
		if len(notes) == 0 {
			continue
		}
		clean = false
		fmt.Printf("  line %-3d %-10s %-30s %s\n", row.Line, row.Day, row.Exercise, strings.Join(notes, ", "))
	}
	if clean {
		fmt.Println("  all rows parsed without defaults")
	}
}

func printResult(r *ingest.Result) {
	fmt.Println()
	fmt.Println("=== Seed Summary ===")
	fmt.Printf("  Week starting:    %s\n", r.WeekStartDate)
	fmt.Printf("  Days:             %d\n", r.DaysStored)
	fmt.Printf("  Exercises:        %d\n", r.ExercisesStored)
	fmt.Printf("  Sets:             %d\n", r.SetsStored)
	fmt.Printf("  Rows received:    %d\n", r.RowsReceived)
	fmt.Printf("  Rows skipped:     %d\n", r.RowsSkipped)
	fmt.Printf("  Rows defaulted:   %d\n", r.RowsDefaulted)
	fmt.Println()
}

func logImport(ctx context.Context, db *storage.DB, log *slog.Logger, uid int, r *ingest.Result, importErr error, elapsed time.Duration) {
	ms := int(elapsed.Milliseconds())
	entry := storage.ImportLog{UserID: uid, Source: "seed", Status: "success", DurationMs: &ms}
	if importErr != nil {
		entry.Status = "error"
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}
	if r != nil {
		week := r.WeekStartDate
		entry.WeekStartDate = &week
		entry.RowsReceived = r.RowsReceived
		entry.RowsSkipped = r.RowsSkipped
		entry.RowsDefaulted = r.RowsDefaulted
		entry.SetsStored = r.SetsStored
	}
	if _, err := db.InsertImportLog(ctx, entry); err != nil {
		log.Warn("failed to log import", "error", err)
	}
}
