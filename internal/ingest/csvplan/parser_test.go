package csvplan

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const samplePlan = `Día,Ejercicio,Series,Repeticiones,Descanso,Imagen,Videos
Lunes,Press banca,3,12/10/8(drop),3-4 minutos,https://img.example.com/press.png,https://video.example.com/press
Lunes,Aperturas con mancuernas,3,12,2 min,,
Martes,Dominadas,4,"8, 8, 6, 6",2 minutos,,
Miércoles,Sentadilla,4,10/8/8/6,"1,5 minutos",,
Jueves,Press militar,3,10/10/8,90,,
Viernes,Peso muerto,3,,descanso corto,,
Sábado,Cardio,1,30,1,,
Domingo,Descanso,,,,,
`

var wednesday = time.Date(2025, 1, 15, 18, 30, 0, 0, time.Local)

func mustParse(t *testing.T, csv string) *Result {
	t.Helper()
	res, err := Parse(strings.NewReader(csv), wednesday)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return res
}

// TestParseFullWeek verifies a plan with all five weekdays yields five
// Monday-first days, each with exercises and sets, dated from the current Monday.
func TestParseFullWeek(t *testing.T) {
	res := mustParse(t, samplePlan)
	w := res.Week

	if w.WeekStartDate != "2025-01-13" {
		t.Errorf("weekStartDate = %q, want 2025-01-13", w.WeekStartDate)
	}
	if len(w.Days) != 5 {
		t.Fatalf("days = %d, want 5", len(w.Days))
	}

	wantDates := []string{"2025-01-13", "2025-01-14", "2025-01-15", "2025-01-16", "2025-01-17"}
	wantTitles := []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"}
	for i, d := range w.Days {
		if d.Date != wantDates[i] {
			t.Errorf("day %d date = %q, want %q", i, d.Date, wantDates[i])
		}
		if d.Title != wantTitles[i] {
			t.Errorf("day %d title = %q, want %q", i, d.Title, wantTitles[i])
		}
		if len(d.Exercises) == 0 {
			t.Errorf("day %d has no exercises", i)
		}
		for _, ex := range d.Exercises {
			if len(ex.Sets) == 0 {
				t.Errorf("exercise %q has no sets", ex.ID)
			}
		}
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

// TestParseRowOrderDoesNotAffectDayOrder verifies days come out Monday to
// Friday even when rows are shuffled, while exercise order follows rows.
func TestParseRowOrderDoesNotAffectDayOrder(t *testing.T) {
	csv := `Dia,Ejercicio,Repeticiones
viernes,Remo,10
lunes,Press,10
VIERNES,Curl,10
martes,Sentadilla,10
`
	w := mustParse(t, csv).Week
	var titles []string
	for _, d := range w.Days {
		titles = append(titles, d.Title)
	}
	if want := []string{"Lunes", "Martes", "Viernes"}; !reflect.DeepEqual(titles, want) {
		t.Errorf("titles = %v, want %v", titles, want)
	}
	fri := w.Days[2]
	if fri.Exercises[0].Name != "Remo" || fri.Exercises[1].Name != "Curl" {
		t.Errorf("friday order = %q, %q; want Remo, Curl", fri.Exercises[0].Name, fri.Exercises[1].Name)
	}
}

// TestParseSkipsWeekendAndUnknownDays verifies non-weekday rows are reported as
// skipped and never reach the week.
func TestParseSkipsWeekendAndUnknownDays(t *testing.T) {
	res := mustParse(t, samplePlan)
	for _, d := range res.Week.Days {
		if d.Title == "Sábado" || d.Title == "Domingo" {
			t.Errorf("weekend day %q in output", d.Title)
		}
	}
	if res.Skipped() != 2 {
		t.Errorf("Skipped() = %d, want 2", res.Skipped())
	}
	last := res.Rows[len(res.Rows)-1]
	if !last.Skipped || last.Day != "Domingo" {
		t.Errorf("last row = %+v, want skipped Domingo", last)
	}
}

// TestParseOnlyWeekendIsFatal verifies a plan with no weekday rows is an error,
// not an empty week.
func TestParseOnlyWeekendIsFatal(t *testing.T) {
	csv := "Día,Ejercicio,Repeticiones\nSábado,Cardio,30\nDomingo,Paseo,1\nfunday,Yoga,1\n"
	res, err := Parse(strings.NewReader(csv), wednesday)
	if !errors.Is(err, ErrNoPlanDays) {
		t.Fatalf("err = %v, want ErrNoPlanDays", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil on failure", res)
	}
}

// TestParseHeaderErrors verifies empty input and missing required columns fail.
func TestParseHeaderErrors(t *testing.T) {
	cases := []struct {
		name string
		csv  string
		want error
	}{
		{"empty", "", ErrEmptyInput},
		{"blank lines", "\n\n  \n", ErrEmptyInput},
		{"no day column", "Ejercicio,Repeticiones\nPress,10\n", ErrMissingColumn},
		{"no exercise column", "Dia,Repeticiones\nlunes,10\n", ErrMissingColumn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.csv), wednesday)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestParseReps covers rep-list parsing, including the tolerant fallback.
func TestParseReps(t *testing.T) {
	cases := []struct {
		cell      string
		want      []int
		defaulted bool
	}{
		{"12/10/8(drop)", []int{12, 10, 8}, false},
		{"12-10-8", []int{12, 10, 8}, false},
		{"8, 8, 6, 6", []int{8, 8, 6, 6}, false},
		{"10 (al fallo) / 8", []int{10, 8}, false},
		{"15", []int{15}, false},
		{"", []int{0}, true},
		{"al fallo", []int{0}, true},
		{"(12)", []int{0}, true},
	}
	for _, tc := range cases {
		got, defaulted := parseReps(tc.cell)
		if !reflect.DeepEqual(got, tc.want) || defaulted != tc.defaulted {
			t.Errorf("parseReps(%q) = %v, %v; want %v, %v", tc.cell, got, defaulted, tc.want, tc.defaulted)
		}
	}
}

// TestParseRest covers minute values, ranges, decimal commas and fallbacks.
func TestParseRest(t *testing.T) {
	cases := []struct {
		cell      string
		want      int
		defaulted bool
	}{
		{"3-4 minutos", 210, false},
		{"2 min", 120, false},
		{"1.5 minutos", 90, false},
		{"1,5 minutos", 90, false},
		{"1 - 2", 90, false},
		{"0.75", 45, false},
		{"15 min", 900, false},
		{"", 0, true},
		{"descanso corto", 0, true},
	}
	for _, tc := range cases {
		got, defaulted := parseRest(tc.cell)
		if got != tc.want || defaulted != tc.defaulted {
			t.Errorf("parseRest(%q) = %d, %v; want %d, %v", tc.cell, got, defaulted, tc.want, tc.defaulted)
		}
	}
}

// TestSplitFields verifies quoted commas stay in one field and quotes are removed.
func TestSplitFields(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{`a,b,c`, []string{"a", "b", "c"}},
		{`lunes,"Press, banca",3`, []string{"lunes", "Press, banca", "3"}},
		{`"a","b"`, []string{"a", "b"}},
		{`a,,c,`, []string{"a", "", "c", ""}},
		{`x"y"z,1`, []string{"xyz", "1"}},
		{`"unterminated, still one`, []string{"unterminated, still one"}},
	}
	for _, tc := range cases {
		if got := splitFields(tc.line); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitFields(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

// TestParseQuotedFieldStoredWithoutQuotes verifies the quoted rep cell from the
// sample plan reaches the week as four sets.
func TestParseQuotedFieldStoredWithoutQuotes(t *testing.T) {
	w := mustParse(t, samplePlan).Week
	ex := w.Days[1].Exercises[0]
	if ex.Name != "Dominadas" {
		t.Fatalf("name = %q, want Dominadas", ex.Name)
	}
	if len(ex.Sets) != 4 {
		t.Errorf("sets = %d, want 4", len(ex.Sets))
	}

	csv := "Dia,Ejercicio,Repeticiones\nlunes,\"Curl, martillo\",10\n"
	got := mustParse(t, csv).Week.Days[0].Exercises[0]
	if got.Name != "Curl, martillo" {
		t.Errorf("name = %q, want %q", got.Name, "Curl, martillo")
	}
}

// TestParseExerciseFields verifies slug, media defaults, sets and rest for the
// first Monday exercise and the defaulted Friday row.
func TestParseExerciseFields(t *testing.T) {
	res := mustParse(t, samplePlan)
	press := res.Week.Days[0].Exercises[0]

	if press.ID != "lunes-press-banca" {
		t.Errorf("id = %q, want lunes-press-banca", press.ID)
	}
	if press.BreakSeconds != 210 {
		t.Errorf("breakSeconds = %d, want 210", press.BreakSeconds)
	}
	if press.Media.ImageURL != "https://img.example.com/press.png" {
		t.Errorf("imageUrl = %q", press.Media.ImageURL)
	}
	if press.Media.VideoURL != "https://video.example.com/press" {
		t.Errorf("videoUrl = %q", press.Media.VideoURL)
	}
	for i, s := range press.Sets {
		if s.SetNumber != i+1 {
			t.Errorf("set %d number = %d", i, s.SetNumber)
		}
		if s.WeightKg != 0 {
			t.Errorf("set %d weight = %v, want 0", i, s.WeightKg)
		}
	}

	flyes := res.Week.Days[0].Exercises[1]
	if flyes.ID != "lunes-aperturas-con-mancuernas" {
		t.Errorf("id = %q", flyes.ID)
	}
	if flyes.Media.ImageURL != PlaceholderImageURL {
		t.Errorf("imageUrl = %q, want placeholder", flyes.Media.ImageURL)
	}
	if flyes.Media.VideoURL != "" {
		t.Errorf("videoUrl = %q, want empty", flyes.Media.VideoURL)
	}

	wed := res.Week.Days[2].Exercises[0]
	if wed.ID != "miercoles-sentadilla" {
		t.Errorf("id = %q, want miercoles-sentadilla", wed.ID)
	}
	if wed.BreakSeconds != 90 {
		t.Errorf("breakSeconds = %d, want 90", wed.BreakSeconds)
	}

	deadlift := res.Week.Days[4].Exercises[0]
	if len(deadlift.Sets) != 1 || deadlift.Sets[0].Reps != 0 {
		t.Errorf("sets = %+v, want one set of 0 reps", deadlift.Sets)
	}
	if deadlift.BreakSeconds != 0 {
		t.Errorf("breakSeconds = %d, want 0", deadlift.BreakSeconds)
	}
}

// TestParseRowResults verifies which rows are reported as parsed or defaulted.
func TestParseRowResults(t *testing.T) {
	res := mustParse(t, samplePlan)
	byExercise := make(map[string]RowResult)
	for _, row := range res.Rows {
		byExercise[row.Exercise] = row
	}

	press := byExercise["Press banca"]
	if press.Defaulted() || press.Skipped {
		t.Errorf("Press banca = %+v, want fully parsed", press)
	}
	if press.Line != 2 {
		t.Errorf("Press banca line = %d, want 2", press.Line)
	}

	flyes := byExercise["Aperturas con mancuernas"]
	if !flyes.ImageDefaulted || flyes.RepsDefaulted || flyes.RestDefaulted {
		t.Errorf("Aperturas = %+v, want only image defaulted", flyes)
	}
	if !flyes.SetsFromSeries {
		t.Errorf("Aperturas SetsFromSeries = false, want true")
	}

	deadlift := byExercise["Peso muerto"]
	if !deadlift.RepsDefaulted || !deadlift.RestDefaulted {
		t.Errorf("Peso muerto = %+v, want reps and rest defaulted", deadlift)
	}

	if got := res.Defaulted(); got != 5 {
		t.Errorf("Defaulted() = %d, want 5", got)
	}
}

// TestParseSeriesExpandsSingleRepCount verifies "Series 3, Repeticiones 12"
// yields three sets of 12, while an explicit rep list wins over the series column.
func TestParseSeriesExpandsSingleRepCount(t *testing.T) {
	w := mustParse(t, samplePlan).Week
	flyes := w.Days[0].Exercises[1]
	if len(flyes.Sets) != 3 {
		t.Fatalf("sets = %d, want 3", len(flyes.Sets))
	}
	for i, s := range flyes.Sets {
		if s.Reps != 12 || s.SetNumber != i+1 {
			t.Errorf("set %d = %+v, want %d x 12", i, s, i+1)
		}
	}

	press := w.Days[0].Exercises[0]
	if len(press.Sets) != 3 || press.Sets[2].Reps != 8 {
		t.Errorf("press sets = %+v, want 12/10/8", press.Sets)
	}
}

// TestParseSeriesColumn covers when the Series cell expands a single rep
// count and when it is ignored.
func TestParseSeriesColumn(t *testing.T) {
	cases := []struct {
		name     string
		series   string
		reps     string
		wantSets int
		expanded bool
		ignored  bool
	}{
		{"expands single count", "4", "10", 4, true, false},
		{"at the cap", "20", "10", 20, true, false},
		{"above the cap", "21", "10", 1, false, true},
		{"oversized", "5000000", "10", 1, false, true},
		{"unreadable", "muchas", "10", 1, false, false},
		{"one series", "1", "10", 1, false, false},
		{"rep list wins", "5", "12/10", 2, false, false},
		{"defaulted reps", "5", "al fallo", 1, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			csv := "Día,Ejercicio,Series,Repeticiones\nLunes,Press," + tc.series + "," + tc.reps + "\n"
			res := mustParse(t, csv)
			sets := res.Week.Days[0].Exercises[0].Sets
			if len(sets) != tc.wantSets {
				t.Fatalf("sets = %d, want %d", len(sets), tc.wantSets)
			}
			row := res.Rows[0]
			if row.SetsFromSeries != tc.expanded || row.SeriesIgnored != tc.ignored {
				t.Errorf("SetsFromSeries=%v SeriesIgnored=%v, want %v/%v",
					row.SetsFromSeries, row.SeriesIgnored, tc.expanded, tc.ignored)
			}
			if tc.ignored && !row.Defaulted() {
				t.Error("row with an ignored Series should count as defaulted")
			}
		})
	}
}

// TestParseInvalidMediaFallsBack verifies unusable URLs degrade instead of failing.
func TestParseInvalidMediaFallsBack(t *testing.T) {
	csv := "Dia,Ejercicio,Repeticiones,Imagen,Videos\nlunes,Press,10,foto.png,ver en youtube\n"
	res := mustParse(t, csv)
	ex := res.Week.Days[0].Exercises[0]
	if ex.Media.ImageURL != PlaceholderImageURL {
		t.Errorf("imageUrl = %q, want placeholder", ex.Media.ImageURL)
	}
	if ex.Media.VideoURL != "" {
		t.Errorf("videoUrl = %q, want empty", ex.Media.VideoURL)
	}
	if !res.Rows[0].ImageDefaulted || !res.Rows[0].VideoDropped {
		t.Errorf("row = %+v, want image defaulted and video dropped", res.Rows[0])
	}
}

// TestParseDuplicateExerciseNames verifies slugs stay unique within a day.
func TestParseDuplicateExerciseNames(t *testing.T) {
	csv := "Dia,Ejercicio,Repeticiones\nlunes,Plancha,1\nlunes,Plancha,1\nmartes,Plancha,1\n"
	w := mustParse(t, csv).Week
	mon := w.Days[0].Exercises
	if mon[0].ID != "lunes-plancha" || mon[1].ID != "lunes-plancha-2" {
		t.Errorf("ids = %q, %q; want lunes-plancha, lunes-plancha-2", mon[0].ID, mon[1].ID)
	}
	if w.Days[1].Exercises[0].ID != "martes-plancha" {
		t.Errorf("tuesday id = %q", w.Days[1].Exercises[0].ID)
	}
}

// TestParseMissingExerciseNameSkipped verifies a weekday row without a name is skipped.
func TestParseMissingExerciseNameSkipped(t *testing.T) {
	csv := "Dia,Ejercicio,Repeticiones\nlunes,,10\nlunes,Press,10\n"
	res := mustParse(t, csv)
	if len(res.Week.Days[0].Exercises) != 1 {
		t.Errorf("exercises = %d, want 1", len(res.Week.Days[0].Exercises))
	}
	if !res.Rows[0].Skipped || res.Rows[0].SkipReason != "missing exercise name" {
		t.Errorf("row = %+v, want skipped for missing name", res.Rows[0])
	}
}

// TestParseToleratesFormatting verifies CRLF endings, a BOM, short rows and
// accent-free headers.
func TestParseToleratesFormatting(t *testing.T) {
	csv := "\ufeffDIA , Ejercicio ,Repeticiones,Descanso\r\nLUNES,  Press  ,10\r\n\r\nmiercoles,Remo\r\n"
	w := mustParse(t, csv).Week
	if len(w.Days) != 2 {
		t.Fatalf("days = %d, want 2", len(w.Days))
	}
	if got := w.Days[0].Exercises[0]; got.Name != "Press" || got.ID != "lunes-press" {
		t.Errorf("exercise = %q/%q, want Press/lunes-press", got.Name, got.ID)
	}
	if w.Days[1].Title != "Miércoles" {
		t.Errorf("title = %q, want Miércoles", w.Days[1].Title)
	}
}

// TestParseAnchorsOnCurrentMonday verifies the anchor moves with the clock,
// including Sunday belonging to the week that started the previous Monday.
func TestParseAnchorsOnCurrentMonday(t *testing.T) {
	csv := "Dia,Ejercicio\nviernes,Remo\n"
	cases := []struct {
		now      time.Time
		wantWeek string
		wantDay  string
	}{
		{time.Date(2025, 1, 13, 0, 0, 0, 0, time.Local), "2025-01-13", "2025-01-17"},
		{time.Date(2025, 1, 19, 23, 59, 0, 0, time.Local), "2025-01-13", "2025-01-17"},
		{time.Date(2025, 1, 20, 8, 0, 0, 0, time.Local), "2025-01-20", "2025-01-24"},
		{time.Date(2024, 12, 31, 8, 0, 0, 0, time.Local), "2024-12-30", "2025-01-03"},
	}
	for _, tc := range cases {
		res, err := Parse(strings.NewReader(csv), tc.now)
		if err != nil {
			t.Fatalf("parse error: %v", err)
		}
		if res.Week.WeekStartDate != tc.wantWeek || res.Week.Days[0].Date != tc.wantDay {
			t.Errorf("now %v: week %s day %s, want %s %s", tc.now, res.Week.WeekStartDate,
				res.Week.Days[0].Date, tc.wantWeek, tc.wantDay)
		}
	}
}

// TestSlug verifies slug normalization.
func TestSlug(t *testing.T) {
	cases := []struct {
		day, name, want string
	}{
		{"lunes", "Press Banca", "lunes-press-banca"},
		{"martes", "  Remo   con  barra ", "martes-remo-con-barra"},
		{"jueves", "Curl\tMartillo", "jueves-curl-martillo"},
	}
	for _, tc := range cases {
		if got := Slug(tc.day, tc.name); got != tc.want {
			t.Errorf("Slug(%q, %q) = %q, want %q", tc.day, tc.name, got, tc.want)
		}
	}
}

// TestParseFileMissing verifies an unreadable source is fatal.
func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile("/nonexistent/rutina.csv", wednesday); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestParseSeedPlan verifies the bundled seed plan parses cleanly with rests
// in a plausible range.
func TestParseSeedPlan(t *testing.T) {
	res, err := ParseFile(filepath.Join("..", "..", "..", "rutina_planificada.csv"), wednesday)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Week.Days) != 5 {
		t.Fatalf("days = %d, want 5", len(res.Week.Days))
	}
	for _, row := range res.Rows {
		if row.Skipped || row.RestDefaulted || row.RepsDefaulted {
			t.Errorf("line %d: %+v", row.Line, row)
		}
	}
	rests := map[string]int{}
	for _, d := range res.Week.Days {
		for _, ex := range d.Exercises {
			if ex.BreakSeconds <= 0 || ex.BreakSeconds > 300 {
				t.Errorf("%s: break = %ds, want 1..300", ex.ID, ex.BreakSeconds)
			}
			rests[ex.ID] = ex.BreakSeconds
		}
	}
	for _, id := range []string{"lunes-aperturas-con-mancuernas", "jueves-press-militar"} {
		if rests[id] != 90 {
			t.Errorf("%s: break = %ds, want 90", id, rests[id])
		}
	}
}
