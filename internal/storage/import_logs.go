package storage

import (
	"context"
	"fmt"
	"time"
)

// ImportLog records one plan import and how many rows were kept or defaulted.
type ImportLog struct {
	ID            int64     `json:"id"`
	UserID        int       `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	Source        string    `json:"source"`
	Status        string    `json:"status"`
	WeekStartDate *string   `json:"week_start_date"`
	RowsReceived  int       `json:"rows_received"`
	RowsSkipped   int       `json:"rows_skipped"`
	RowsDefaulted int       `json:"rows_defaulted"`
	SetsStored    int       `json:"sets_stored"`
	DurationMs    *int      `json:"duration_ms"`
	ErrorMessage  *string   `json:"error_message"`
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (user_id, source, status, week_start_date, rows_received,
		 rows_skipped, rows_defaulted, sets_stored, duration_ms, error_message)
		 VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		log.UserID, log.Source, log.Status, log.WeekStartDate, log.RowsReceived,
		log.RowsSkipped, log.RowsDefaulted, log.SetsStored, log.DurationMs, log.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// QueryImportLogs returns the most recent import logs for a user.
func (db *DB) QueryImportLogs(ctx context.Context, userID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, source, status, to_char(week_start_date, 'YYYY-MM-DD'),
		 rows_received, rows_skipped, rows_defaulted, sets_stored, duration_ms, error_message
		 FROM import_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Source, &l.Status, &l.WeekStartDate,
			&l.RowsReceived, &l.RowsSkipped, &l.RowsDefaulted, &l.SetsStored,
			&l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
