package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/gymio/internal/ingest"
	"github.com/claude/gymio/internal/ingest/csvplan"
)

// Stats tracks upload progress.
type Stats struct {
	WeekStartDate string
	Hash          string
	Skipped       bool
	DryRun        bool
	Result        *ingest.Result
}

// Uploader validates a local CSV plan and sends it to the Gymio server
// unless the same file was already sent for the current week.
type Uploader struct {
	client *Client
	state  *StateDB
	login  string
	dryRun bool
	log    *slog.Logger
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, login string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		login:  login,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads the plan at path. now decides which week the plan is for.
func (u *Uploader) Run(ctx context.Context, path string, now time.Time) (*Stats, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	preview, parsed, err := csvplan.Preview(bytes.NewReader(data), now)
	if err != nil {
		return nil, fmt.Errorf("validating plan: %w", err)
	}
	for _, row := range parsed.Rows {
		if row.Defaulted() {
			u.log.Warn("row uses defaults", "line", row.Line, "exercise", row.Exercise)
		}
	}

	stats := &Stats{WeekStartDate: preview.WeekStartDate, Hash: HashBytes(data), DryRun: u.dryRun}

	uploaded, err := u.state.IsUploaded(ctx, abs, stats.Hash, stats.WeekStartDate)
	if err != nil {
		return stats, fmt.Errorf("checking upload state: %w", err)
	}
	if uploaded {
		u.log.Info("plan unchanged for this week, skipping", "path", abs, "week", stats.WeekStartDate)
		stats.Skipped = true
		return stats, nil
	}

	if u.dryRun {
		u.log.Info("dry-run: would send plan",
			"week", preview.WeekStartDate,
			"days", preview.DaysStored,
			"sets", preview.SetsStored,
		)
		stats.Result = preview
		return stats, nil
	}

	result, err := u.client.ImportPlan(ctx, data, u.login)
	if err != nil {
		return stats, err
	}
	stats.Result = result

	if err := u.state.MarkUploaded(ctx, abs, stats.Hash, stats.WeekStartDate); err != nil {
		u.log.Warn("failed to mark uploaded", "path", abs, "error", err)
	}
	u.log.Info("plan uploaded", "week", result.WeekStartDate, "sets", result.SetsStored)
	return stats, nil
}
