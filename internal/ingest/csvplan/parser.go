package csvplan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/gymio/internal/models"
)

// PlaceholderImageURL is used for exercises whose image cell is empty or unusable.
const PlaceholderImageURL = "https://placehold.co/400x260.png"

// maxSeries bounds how many sets a Series cell may expand a single rep count into.
// Larger values are ignored and the row keeps its parsed reps.
const maxSeries = 20

var (
	// ErrEmptyInput is returned when the input has no header row.
	ErrEmptyInput = errors.New("plan has no header row")

	// ErrMissingColumn is returned when the header lacks the day or exercise column.
	ErrMissingColumn = errors.New("plan header is missing a required column")

	// ErrNoPlanDays is returned when no row falls on Monday through Friday.
	ErrNoPlanDays = errors.New("plan has no weekday rows")
)

// IsPlanError reports whether err comes from the content of a plan rather
// than from reading or storing it.
func IsPlanError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrNoPlanDays) ||
		errors.Is(err, models.ErrInvalidWeek)
}

var (
	// annotationRe matches parenthesized notes in a rep cell: "8(drop)"
	annotationRe = regexp.MustCompile(`\(.*?\)`)

	// nonDigitRe separates rep counts: "12/10/8", "12-10-8", "12 10 8"
	nonDigitRe = regexp.MustCompile(`[^0-9]+`)

	// restRangeRe matches a minute range: "3-4 minutos", "1,5 - 2 min"
	restRangeRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*-\s*(\d+(?:[.,]\d+)?)`)

	// restSingleRe matches a single minute value: "2 min", "1.5"
	restSingleRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	accentReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u")
)

type weekday struct {
	key    string
	title  string
	offset int
}

// weekdays is the fixed Monday-to-Friday output order.
var weekdays = []weekday{
	{"lunes", "Lunes", 0},
	{"martes", "Martes", 1},
	{"miercoles", "Miércoles", 2},
	{"jueves", "Jueves", 3},
	{"viernes", "Viernes", 4},
}

// RowResult records how one data row was interpreted.
type RowResult struct {
	Line     int    `json:"line"`
	Day      string `json:"day"`
	Exercise string `json:"exercise"`

	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`

	RepsDefaulted  bool `json:"reps_defaulted,omitempty"`
	RestDefaulted  bool `json:"rest_defaulted,omitempty"`
	ImageDefaulted bool `json:"image_defaulted,omitempty"`
	VideoDropped   bool `json:"video_dropped,omitempty"`
	SetsFromSeries bool `json:"sets_from_series,omitempty"`
	SeriesIgnored  bool `json:"series_ignored,omitempty"`
}

// Defaulted reports whether any cell of a kept row fell back to a default.
func (r RowResult) Defaulted() bool {
	return !r.Skipped && (r.RepsDefaulted || r.RestDefaulted || r.ImageDefaulted || r.VideoDropped || r.SeriesIgnored)
}

// Result is a parsed week plus the per-row report.
type Result struct {
	Week *models.WorkoutWeek
	Rows []RowResult
}

// Skipped returns the number of rows that produced no exercise.
func (r *Result) Skipped() int {
	n := 0
	for _, row := range r.Rows {
		if row.Skipped {
			n++
		}
	}
	return n
}

// Defaulted returns the number of kept rows with at least one defaulted cell.
func (r *Result) Defaulted() int {
	n := 0
	for _, row := range r.Rows {
		if row.Defaulted() {
			n++
		}
	}
	return n
}

// columns holds header positions; -1 means the column is absent.
type columns struct {
	day, exercise, series, reps, rest, image, video int
}

var headerAliases = map[string]string{
	"dia":          "day",
	"day":          "day",
	"ejercicio":    "exercise",
	"exercise":     "exercise",
	"series":       "series",
	"sets":         "series",
	"repeticiones": "reps",
	"reps":         "reps",
	"descanso":     "rest",
	"rest":         "rest",
	"imagen":       "image",
	"image":        "image",
	"videos":       "video",
	"video":        "video",
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string, now time.Time) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plan %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, now)
}

// Parse reads a weekly plan in CSV form. The week is anchored on the Monday of
// now's calendar week, in now's location. Malformed cells fall back to defaults
// and are reported per row; only unreadable input, a bad header, or a plan with
// no weekday rows is an error, in which case no week is returned.
func Parse(r io.Reader, now time.Time) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cols      *columns
		rows      []RowResult
		exercises = make([][]models.WorkoutExercise, len(weekdays))
		slugs     = make([]map[string]int, len(weekdays))
		lineNo    int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		cells := splitFields(line)
		if cols == nil {
			c, err := mapHeader(cells)
			if err != nil {
				return nil, err
			}
			cols = c
			continue
		}

		get := func(i int) string {
			if i < 0 || i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		}

		row := RowResult{Line: lineNo, Day: get(cols.day), Exercise: get(cols.exercise)}
		dayIdx, ok := lookupDay(row.Day)
		if !ok {
			row.Skipped = true
			row.SkipReason = "day is not Monday to Friday"
			rows = append(rows, row)
			continue
		}
		if row.Exercise == "" {
			row.Skipped = true
			row.SkipReason = "missing exercise name"
			rows = append(rows, row)
			continue
		}

		reps, repsDefaulted := parseReps(get(cols.reps))
		row.RepsDefaulted = repsDefaulted
		if n := parseSeries(get(cols.series)); !repsDefaulted && len(reps) == 1 && n > 1 {
			if n > maxSeries {
				row.SeriesIgnored = true
			} else {
				for len(reps) < n {
					reps = append(reps, reps[0])
				}
				row.SetsFromSeries = true
			}
		}

		breakSeconds, restDefaulted := parseRest(get(cols.rest))
		row.RestDefaulted = restDefaulted

		media := models.ExerciseMedia{ImageURL: get(cols.image)}
		if !models.IsHTTPURL(media.ImageURL) {
			media.ImageURL = PlaceholderImageURL
			row.ImageDefaulted = true
		}
		if video := get(cols.video); video != "" {
			if models.IsHTTPURL(video) {
				media.VideoURL = video
			} else {
				row.VideoDropped = true
			}
		}

		sets := make([]models.WorkoutSet, len(reps))
		for i, rep := range reps {
			sets[i] = models.WorkoutSet{SetNumber: i + 1, Reps: rep}
		}

		if slugs[dayIdx] == nil {
			slugs[dayIdx] = make(map[string]int)
		}
		exercises[dayIdx] = append(exercises[dayIdx], models.WorkoutExercise{
			ID:           uniqueSlug(slugs[dayIdx], Slug(weekdays[dayIdx].key, row.Exercise)),
			Name:         row.Exercise,
			Media:        media,
			BreakSeconds: breakSeconds,
			Sets:         sets,
		})
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	if cols == nil {
		return nil, ErrEmptyInput
	}

	monday := models.MondayOf(now)
	week := &models.WorkoutWeek{WeekStartDate: models.FormatDate(monday)}
	for i, wd := range weekdays {
		if len(exercises[i]) == 0 {
			continue
		}
		week.Days = append(week.Days, models.WorkoutDay{
			Date:      models.FormatDate(monday.AddDate(0, 0, wd.offset)),
			Title:     wd.title,
			Exercises: exercises[i],
		})
	}
	if len(week.Days) == 0 {
		return nil, fmt.Errorf("%w (%d data rows)", ErrNoPlanDays, len(rows))
	}
	if err := week.Validate(); err != nil {
		return nil, err
	}

	return &Result{Week: week, Rows: rows}, nil
}

// splitFields splits a line on commas outside double quotes. Quote characters
// are dropped; there is no escaped-quote form.
func splitFields(line string) []string {
	var (
		cells    []string
		current  strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			cells = append(cells, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	return append(cells, current.String())
}

func mapHeader(cells []string) (*columns, error) {
	c := &columns{day: -1, exercise: -1, series: -1, reps: -1, rest: -1, image: -1, video: -1}
	for i, cell := range cells {
		switch headerAliases[normalize(cell)] {
		case "day":
			c.day = i
		case "exercise":
			c.exercise = i
		case "series":
			c.series = i
		case "reps":
			c.reps = i
		case "rest":
			c.rest = i
		case "image":
			c.image = i
		case "video":
			c.video = i
		}
	}
	if c.day < 0 {
		return nil, fmt.Errorf("%w: day", ErrMissingColumn)
	}
	if c.exercise < 0 {
		return nil, fmt.Errorf("%w: exercise", ErrMissingColumn)
	}
	return c, nil
}

// normalize lowercases s and strips Spanish accents.
func normalize(s string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

func lookupDay(cell string) (int, bool) {
	key := normalize(cell)
	for i, wd := range weekdays {
		if wd.key == key {
			return i, true
		}
	}
	return 0, false
}

// parseReps extracts the per-set rep counts. An empty or digit-free cell
// yields a single set of 0 reps and defaulted=true.
func parseReps(cell string) (reps []int, defaulted bool) {
	cleaned := annotationRe.ReplaceAllString(cell, "")
	for _, tok := range nonDigitRe.Split(cleaned, -1) {
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		reps = append(reps, n)
	}
	if len(reps) == 0 {
		return []int{0}, true
	}
	return reps, false
}

// parseSeries reads the declared set count; anything unreadable is 0.
func parseSeries(cell string) int {
	m := nonDigitRe.Split(strings.TrimSpace(cell), -1)
	for _, tok := range m {
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// parseRest converts a rest cell in minutes to whole seconds. A range uses its
// midpoint. Cells without a number yield 0 and defaulted=true.
func parseRest(cell string) (seconds int, defaulted bool) {
	lower := strings.ToLower(cell)
	if m := restRangeRe.FindStringSubmatch(lower); m != nil {
		return minutesToSeconds((parseDecimal(m[1]) + parseDecimal(m[2])) / 2), false
	}
	if m := restSingleRe.FindString(lower); m != "" {
		return minutesToSeconds(parseDecimal(m)), false
	}
	return 0, true
}

func minutesToSeconds(minutes float64) int {
	return int(math.Round(minutes * 60))
}

// parseDecimal accepts both "1.5" and "1,5".
func parseDecimal(s string) float64 {
	v, _ := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	return v
}

// Slug derives an exercise identifier from the day key and exercise name:
// "lunes", "Press Banca" -> "lunes-press-banca".
func Slug(dayKey, name string) string {
	return dayKey + "-" + strings.ToLower(whitespaceRe.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// uniqueSlug appends -2, -3, ... when slug was already used on the same day.
func uniqueSlug(seen map[string]int, slug string) string {
	seen[slug]++
	if n := seen[slug]; n > 1 {
		candidate := slug + "-" + strconv.Itoa(n)
		for seen[candidate] > 0 {
			n++
			candidate = slug + "-" + strconv.Itoa(n)
		}
		seen[candidate] = 1
		return candidate
	}
	return slug
}
