package mcp

import (
	"context"

	"github.com/claude/gymio/internal/models"
	"github.com/claude/gymio/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	LatestWeek(ctx context.Context, userID int) (*models.WorkoutWeek, error)
	GetOrCreateSession(ctx context.Context, userID int, date string) (*models.Session, error)
	SessionPerformances(ctx context.Context, sessionID uuid.UUID) (models.PerformanceMap, error)
	UpdateSetPerformance(ctx context.Context, userID int, upd models.SetUpdate) (*models.SetPerformanceRecord, error)
	CountCompletedSets(ctx context.Context, userID int, from, to string) (int, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
