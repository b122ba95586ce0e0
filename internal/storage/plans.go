package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/gymio/internal/models"
	"github.com/jackc/pgx/v5"
)

// WeekStats counts the rows written by ReplaceWeek.
type WeekStats struct {
	Days      int
	Exercises int
	Sets      int
}

// ReplaceWeek stores week for the user, replacing any plan already stored for
// the same Monday. Performances recorded against the old plan are removed with it.
func (db *DB) ReplaceWeek(ctx context.Context, userID int, week *models.WorkoutWeek) (*WeekStats, error) {
	if err := week.Validate(); err != nil {
		return nil, err
	}
	weekStart, err := models.ParseDate(week.WeekStartDate)
	if err != nil {
		return nil, fmt.Errorf("parsing week start: %w", err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var weekID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO plan_weeks (user_id, week_start_date)
		VALUES ($1, $2)
		ON CONFLICT (user_id, week_start_date) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, userID, weekStart).Scan(&weekID)
	if err != nil {
		return nil, fmt.Errorf("upserting week: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM plan_days WHERE week_id = $1`, weekID); err != nil {
		return nil, fmt.Errorf("deleting old days: %w", err)
	}

	stats := &WeekStats{}
	var setRows [][]any
	for _, d := range week.Days {
		date, err := models.ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing day date: %w", err)
		}
		var dayID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO plan_days (week_id, date, title, notes)
			VALUES ($1, $2, $3, NULLIF($4, ''))
			RETURNING id
		`, weekID, date, d.Title, d.Notes).Scan(&dayID)
		if err != nil {
			return nil, fmt.Errorf("inserting day %s: %w", d.Date, err)
		}
		stats.Days++

		batch := &pgx.Batch{}
		for pos, ex := range d.Exercises {
			batch.Queue(`
				INSERT INTO plan_exercises (day_id, position, slug, name, image_url, video_url, break_seconds)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
				RETURNING id
			`, dayID, pos, ex.ID, ex.Name, ex.Media.ImageURL, ex.Media.VideoURL, ex.BreakSeconds)
		}
		br := tx.SendBatch(ctx, batch)
		for _, ex := range d.Exercises {
			var exerciseID int64
			if err := br.QueryRow().Scan(&exerciseID); err != nil {
				br.Close()
				return nil, fmt.Errorf("inserting exercise %s: %w", ex.ID, err)
			}
			stats.Exercises++
			for _, s := range ex.Sets {
				setRows = append(setRows, []any{exerciseID, s.SetNumber, s.Reps, s.WeightKg})
			}
		}
		if err := br.Close(); err != nil {
			return nil, fmt.Errorf("closing exercise batch: %w", err)
		}
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"plan_sets"},
		[]string{"exercise_id", "set_number", "reps", "weight_kg"},
		pgx.CopyFromRows(setRows),
	)
	if err != nil {
		return nil, fmt.Errorf("copying sets: %w", err)
	}
	stats.Sets = int(n)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing week: %w", err)
	}
	return stats, nil
}

// LatestWeek returns the user's plan with the most recent week start, or nil
// when the user has none.
func (db *DB) LatestWeek(ctx context.Context, userID int) (*models.WorkoutWeek, error) {
	var (
		weekID int64
		week   models.WorkoutWeek
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT id, to_char(week_start_date, 'YYYY-MM-DD')
		FROM plan_weeks
		WHERE user_id = $1
		ORDER BY week_start_date DESC
		LIMIT 1
	`, userID).Scan(&weekID, &week.WeekStartDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest week: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT d.id, to_char(d.date, 'YYYY-MM-DD'), d.title, COALESCE(d.notes, ''),
		       e.id, e.slug, e.name, COALESCE(e.image_url, ''), COALESCE(e.video_url, ''), e.break_seconds,
		       s.set_number, s.reps, s.weight_kg
		FROM plan_days d
		JOIN plan_exercises e ON e.day_id = d.id
		JOIN plan_sets s ON s.exercise_id = e.id
		WHERE d.week_id = $1
		ORDER BY d.date, e.position, s.set_number
	`, weekID)
	if err != nil {
		return nil, fmt.Errorf("querying week %d: %w", weekID, err)
	}
	defer rows.Close()

	var lastDayID, lastExerciseID int64 = -1, -1
	for rows.Next() {
		var (
			dayID, exerciseID int64
			day               models.WorkoutDay
			ex                models.WorkoutExercise
			set               models.WorkoutSet
		)
		if err := rows.Scan(&dayID, &day.Date, &day.Title, &day.Notes,
			&exerciseID, &ex.ID, &ex.Name, &ex.Media.ImageURL, &ex.Media.VideoURL, &ex.BreakSeconds,
			&set.SetNumber, &set.Reps, &set.WeightKg); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		if dayID != lastDayID {
			week.Days = append(week.Days, day)
			lastDayID = dayID
		}
		d := &week.Days[len(week.Days)-1]
		if exerciseID != lastExerciseID {
			d.Exercises = append(d.Exercises, ex)
			lastExerciseID = exerciseID
		}
		e := &d.Exercises[len(d.Exercises)-1]
		e.Sets = append(e.Sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan rows: %w", err)
	}
	if len(week.Days) == 0 {
		return nil, nil
	}
	return &week, nil
}
