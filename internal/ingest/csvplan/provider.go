package csvplan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/claude/gymio/internal/ingest"
	"github.com/claude/gymio/internal/models"
	"github.com/claude/gymio/internal/storage"
)

// WeekStore persists a parsed week for a user.
type WeekStore interface {
	ReplaceWeek(ctx context.Context, userID int, week *models.WorkoutWeek) (*storage.WeekStats, error)
}

// Compile-time check: *storage.DB satisfies WeekStore.
var _ WeekStore = (*storage.DB)(nil)

// Provider turns CSV plans into stored weeks.
type Provider struct {
	store WeekStore
	log   *slog.Logger
}

// NewProvider creates a CSV plan provider.
func NewProvider(store WeekStore, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log}
}

// Ingest parses a CSV plan and replaces the user's week for the parsed Monday.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int, now time.Time) (*ingest.Result, error) {
	parsed, err := Parse(r, now)
	if err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}

	stats, err := p.store.ReplaceWeek(ctx, userID, parsed.Week)
	if err != nil {
		return nil, fmt.Errorf("storing week %s: %w", parsed.Week.WeekStartDate, err)
	}

	result := summarize(parsed)
	result.DaysStored = stats.Days
	result.ExercisesStored = stats.Exercises
	result.SetsStored = stats.Sets

	p.log.Info("plan imported",
		"user_id", userID,
		"week", result.WeekStartDate,
		"days", result.DaysStored,
		"sets", result.SetsStored,
		"skipped_rows", result.RowsSkipped,
		"defaulted_rows", result.RowsDefaulted,
	)
	for _, row := range parsed.Rows {
		if row.Defaulted() {
			p.log.Debug("plan row defaulted", "line", row.Line, "exercise", row.Exercise,
				"reps", row.RepsDefaulted, "rest", row.RestDefaulted, "image", row.ImageDefaulted)
		}
	}
	return result, nil
}

// SeedFile imports the plan at path for the user.
func (p *Provider) SeedFile(ctx context.Context, path string, userID int, now time.Time) (*ingest.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plan %s: %w", path, err)
	}
	defer f.Close()
	return p.Ingest(ctx, f, userID, now)
}

// Preview parses without storing and reports what an import would write.
func Preview(r io.Reader, now time.Time) (*ingest.Result, *Result, error) {
	parsed, err := Parse(r, now)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing plan: %w", err)
	}
	result := summarize(parsed)
	result.DryRun = true
	result.DaysStored = len(parsed.Week.Days)
	for _, d := range parsed.Week.Days {
		result.ExercisesStored += len(d.Exercises)
		for _, ex := range d.Exercises {
			result.SetsStored += len(ex.Sets)
		}
	}
	return result, parsed, nil
}

func summarize(parsed *Result) *ingest.Result {
	return &ingest.Result{
		WeekStartDate: parsed.Week.WeekStartDate,
		RowsReceived:  len(parsed.Rows),
		RowsSkipped:   parsed.Skipped(),
		RowsDefaulted: parsed.Defaulted(),
	}
}
