package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/gymio/internal/dayview"
	"github.com/claude/gymio/internal/ingest/csvplan"
	"github.com/claude/gymio/internal/models"
)

func main() {
	planPath := flag.String("path", "rutina_planificada.csv", "path to the CSV plan")
	index := flag.String("index", "", "day index to show (defaults to today)")
	seconds := flag.Int("seconds", 0, "rest length in seconds (defaults to the day's first break)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	now := time.Now()
	parsed, err := csvplan.ParseFile(*planPath, now)
	if err != nil {
		log.Error("failed to parse plan", "path", *planPath, "error", err)
		os.Exit(1)
	}

	days := parsed.Week.Days
	view, err := dayview.New(days, dayview.ResolveInitialIndex(days, models.FormatDate(now), *index))
	if err != nil {
		log.Error("plan has no days", "error", err)
		os.Exit(1)
	}

	day := view.Day()
	fmt.Printf("%s (%s)\n", day.Title, day.Date)
	for _, ex := range day.Exercises {
		fmt.Printf("  %-30s %d sets, rest %s\n", ex.Name, len(ex.Sets), models.FormatBreak(ex.BreakSeconds))
	}

	var started bool
	if *seconds > 0 {
		started = view.StartTimerWith(*seconds)
	} else {
		started = view.StartTimer()
	}
	if !started {
		fmt.Println("nothing to count down")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\rrest %s ", view.Timer().Clock())
	cd := dayview.NewCountdown(view, time.Second, func(t dayview.RestTimer) {
		fmt.Printf("\rrest %s ", t.Clock())
	})
	cd.Start()

	select {
	case <-cd.Done():
		fmt.Println("\rrest over, next set")
	case <-ctx.Done():
		cd.Stop()
		fmt.Println()
	}
}
