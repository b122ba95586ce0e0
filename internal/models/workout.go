package models

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DateLayout is the calendar-date format used for plan and session dates.
const DateLayout = "2006-01-02"

// ErrInvalidWeek is wrapped by every Validate failure.
var ErrInvalidWeek = errors.New("invalid workout week")

// WorkoutSet is one prescribed set of an exercise.
type WorkoutSet struct {
	SetNumber int     `json:"setNumber"`
	Reps      int     `json:"reps"`
	WeightKg  float64 `json:"weightKg"`
}

// ExerciseMedia holds optional links shown next to an exercise.
type ExerciseMedia struct {
	ImageURL string `json:"imageUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty"`
}

// WorkoutExercise is an exercise within a day. ID is a slug unique within the day.
type WorkoutExercise struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Media        ExerciseMedia `json:"media"`
	BreakSeconds int           `json:"breakSeconds"`
	Sets         []WorkoutSet  `json:"sets"`
}

// WorkoutDay is a dated training day. Date is a local calendar date (YYYY-MM-DD).
type WorkoutDay struct {
	Date      string            `json:"date"`
	Title     string            `json:"title"`
	Notes     string            `json:"notes,omitempty"`
	Exercises []WorkoutExercise `json:"exercises"`
}

// WorkoutWeek is a full weekly plan anchored on its Monday.
type WorkoutWeek struct {
	WeekStartDate string       `json:"weekStartDate"`
	Days          []WorkoutDay `json:"days"`
}

// TotalSets returns the number of prescribed sets for the exercise.
func (e WorkoutExercise) TotalSets() int {
	return len(e.Sets)
}

// DayByDate returns the index of the day with the given date, or -1.
func (w *WorkoutWeek) DayByDate(date string) int {
	for i, d := range w.Days {
		if d.Date == date {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants of a week. Reps of 0 are accepted
// because the CSV parser uses them as the placeholder for an unreadable rep cell.
func (w *WorkoutWeek) Validate() error {
	if w == nil {
		return fmt.Errorf("%w: nil week", ErrInvalidWeek)
	}
	start, err := ParseDate(w.WeekStartDate)
	if err != nil {
		return fmt.Errorf("%w: weekStartDate: %v", ErrInvalidWeek, err)
	}
	if start.Weekday() != time.Monday {
		return fmt.Errorf("%w: weekStartDate %s is not a Monday", ErrInvalidWeek, w.WeekStartDate)
	}
	if len(w.Days) == 0 {
		return fmt.Errorf("%w: no days", ErrInvalidWeek)
	}

	seenDates := make(map[string]bool, len(w.Days))
	var earliest time.Time
	for i, d := range w.Days {
		date, err := ParseDate(d.Date)
		if err != nil {
			return fmt.Errorf("%w: day %d date: %v", ErrInvalidWeek, i, err)
		}
		if seenDates[d.Date] {
			return fmt.Errorf("%w: duplicate day date %s", ErrInvalidWeek, d.Date)
		}
		seenDates[d.Date] = true
		if earliest.IsZero() || date.Before(earliest) {
			earliest = date
		}
		if d.Title == "" {
			return fmt.Errorf("%w: day %s has no title", ErrInvalidWeek, d.Date)
		}
		if len(d.Exercises) == 0 {
			return fmt.Errorf("%w: day %s has no exercises", ErrInvalidWeek, d.Date)
		}
		if err := validateExercises(d); err != nil {
			return err
		}
	}

	if !MondayOf(earliest).Equal(start) {
		return fmt.Errorf("%w: weekStartDate %s is not the Monday of %s",
			ErrInvalidWeek, w.WeekStartDate, FormatDate(earliest))
	}
	return nil
}

func validateExercises(d WorkoutDay) error {
	slugs := make(map[string]bool, len(d.Exercises))
	for _, ex := range d.Exercises {
		if ex.ID == "" || ex.Name == "" {
			return fmt.Errorf("%w: day %s has an exercise without id or name", ErrInvalidWeek, d.Date)
		}
		if slugs[ex.ID] {
			return fmt.Errorf("%w: day %s repeats exercise %q", ErrInvalidWeek, d.Date, ex.ID)
		}
		slugs[ex.ID] = true
		if ex.BreakSeconds < 0 {
			return fmt.Errorf("%w: exercise %q has negative break", ErrInvalidWeek, ex.ID)
		}
		if err := validateURL(ex.Media.ImageURL); err != nil {
			return fmt.Errorf("%w: exercise %q image: %v", ErrInvalidWeek, ex.ID, err)
		}
		if err := validateURL(ex.Media.VideoURL); err != nil {
			return fmt.Errorf("%w: exercise %q video: %v", ErrInvalidWeek, ex.ID, err)
		}
		if len(ex.Sets) == 0 {
			return fmt.Errorf("%w: exercise %q has no sets", ErrInvalidWeek, ex.ID)
		}
		setNumbers := make(map[int]bool, len(ex.Sets))
		for _, s := range ex.Sets {
			if s.SetNumber <= 0 || setNumbers[s.SetNumber] {
				return fmt.Errorf("%w: exercise %q has bad set number %d", ErrInvalidWeek, ex.ID, s.SetNumber)
			}
			setNumbers[s.SetNumber] = true
			if s.Reps < 0 || s.WeightKg < 0 {
				return fmt.Errorf("%w: exercise %q set %d is negative", ErrInvalidWeek, ex.ID, s.SetNumber)
			}
		}
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" || IsHTTPURL(raw) {
		return nil
	}
	return fmt.Errorf("%q is not an absolute http(s) URL", raw)
}

// IsHTTPURL reports whether raw is an absolute http or https URL.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FormatBreak renders a rest duration as "1m 30s", "2m" or "45s".
func FormatBreak(seconds int) string {
	minutes := seconds / 60
	secs := seconds % 60
	switch {
	case minutes > 0 && secs > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// ParseDate parses a YYYY-MM-DD calendar date as local midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// FormatDate formats t as a YYYY-MM-DD calendar date in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MondayOf returns midnight of the Monday on or before t, in t's location.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
