package ingest

// Result holds the outcome of a plan import.
type Result struct {
	WeekStartDate   string `json:"week_start_date"`
	DaysStored      int    `json:"days_stored"`
	ExercisesStored int    `json:"exercises_stored"`
	SetsStored      int    `json:"sets_stored"`

	RowsReceived  int `json:"rows_received"`
	RowsSkipped   int `json:"rows_skipped"`
	RowsDefaulted int `json:"rows_defaulted"`

	DryRun  bool   `json:"dry_run,omitempty"`
	Message string `json:"message,omitempty"`
}
