package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/gymio/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrExerciseNotFound is returned when no exercise in the user's plans matches
// the requested date and slug.
var ErrExerciseNotFound = errors.New("exercise not found")

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetOrCreateSession returns the user's session for date, creating it on first access.
func (db *DB) GetOrCreateSession(ctx context.Context, userID int, date string) (*models.Session, error) {
	return getOrCreateSession(ctx, db.Pool, userID, date)
}

func getOrCreateSession(ctx context.Context, q querier, userID int, date string) (*models.Session, error) {
	day, err := models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parsing session date: %w", err)
	}
	s := &models.Session{UserID: userID, Date: date}
	err = q.QueryRow(ctx, `
		INSERT INTO workout_sessions (id, user_id, date)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, date) DO UPDATE SET date = EXCLUDED.date
		RETURNING id, created_at
	`, uuid.New(), userID, day).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting session: %w", err)
	}
	return s, nil
}

// SessionPerformances returns every recorded set performance of a session.
func (db *DB) SessionPerformances(ctx context.Context, sessionID uuid.UUID) (models.PerformanceMap, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT e.slug, p.set_number, p.completed, p.reps, p.weight_kg
		FROM set_performances p
		JOIN plan_exercises e ON e.id = p.exercise_id
		WHERE p.session_id = $1
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying performances: %w", err)
	}
	defer rows.Close()

	perfs := models.PerformanceMap{}
	for rows.Next() {
		var (
			slug      string
			setNumber int
			p         models.SetPerformance
		)
		if err := rows.Scan(&slug, &setNumber, &p.Completed, &p.Reps, &p.WeightKg); err != nil {
			return nil, fmt.Errorf("scanning performance: %w", err)
		}
		perfs.Set(slug, setNumber, p)
	}
	return perfs, rows.Err()
}

// UpdateSetPerformance records what the user did for one planned set. The
// exercise is resolved by date and slug under the user's most recent plan
// first; when it does not exist, or has no set with upd.SetNumber,
// ErrExerciseNotFound is returned and nothing is written. A first write defaults to not completed, 0 reps and 0 kg; later
// writes only change the fields present in upd.
func (db *DB) UpdateSetPerformance(ctx context.Context, userID int, upd models.SetUpdate) (*models.SetPerformanceRecord, error) {
	date, err := models.ParseDate(upd.Date)
	if err != nil {
		return nil, fmt.Errorf("parsing date: %w", err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exerciseID int64
	err = tx.QueryRow(ctx, `
		SELECT e.id
		FROM plan_exercises e
		JOIN plan_days d ON d.id = e.day_id
		JOIN plan_weeks w ON w.id = d.week_id
		JOIN plan_sets s ON s.exercise_id = e.id
		WHERE w.user_id = $1 AND d.date = $2 AND e.slug = $3 AND s.set_number = $4
		ORDER BY w.week_start_date DESC
		LIMIT 1
	`, userID, date, upd.ExerciseSlug, upd.SetNumber).Scan(&exerciseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExerciseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving exercise: %w", err)
	}

	session, err := getOrCreateSession(ctx, tx, userID, upd.Date)
	if err != nil {
		return nil, err
	}

	rec := &models.SetPerformanceRecord{
		SessionID:    session.ID,
		Date:         upd.Date,
		ExerciseSlug: upd.ExerciseSlug,
		SetNumber:    upd.SetNumber,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO set_performances (session_id, exercise_id, set_number, completed, reps, weight_kg)
		VALUES ($1, $2, $3, COALESCE($4::boolean, FALSE), COALESCE($5::integer, 0), COALESCE($6::double precision, 0))
		ON CONFLICT (session_id, exercise_id, set_number) DO UPDATE SET
			completed  = COALESCE($4::boolean, set_performances.completed),
			reps       = COALESCE($5::integer, set_performances.reps),
			weight_kg  = COALESCE($6::double precision, set_performances.weight_kg),
			updated_at = NOW()
		RETURNING completed, reps, weight_kg, updated_at
	`, session.ID, exerciseID, upd.SetNumber, upd.Completed, upd.Reps, upd.WeightKg).
		Scan(&rec.Completed, &rec.Reps, &rec.WeightKg, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting performance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing performance: %w", err)
	}
	return rec, nil
}

// CountCompletedSets counts completed set performances with session dates in [from, to].
func (db *DB) CountCompletedSets(ctx context.Context, userID int, from, to string) (int, error) {
	start, err := models.ParseDate(from)
	if err != nil {
		return 0, fmt.Errorf("parsing from: %w", err)
	}
	end, err := models.ParseDate(to)
	if err != nil {
		return 0, fmt.Errorf("parsing to: %w", err)
	}
	var n int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM set_performances p
		JOIN workout_sessions s ON s.id = p.session_id
		WHERE s.user_id = $1 AND s.date BETWEEN $2 AND $3 AND p.completed
	`, userID, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting completed sets: %w", err)
	}
	return n, nil
}
