package dayview

import (
	"errors"
	"sort"
	"sync"

	"github.com/claude/gymio/internal/models"
)

// ErrNoDays is returned by New when there is no plan to show.
var ErrNoDays = errors.New("no plan days")

// View is the state of the daily workout screen. It is safe for concurrent
// use, so a Countdown can tick the timer while handlers read it.
type View struct {
	mu        sync.Mutex
	days      []models.WorkoutDay
	index     int
	completed map[string]map[int]bool
	collapse  map[string]CollapseState
	overrides models.PerformanceMap
	timer     RestTimer
}

// New returns a view over days showing initialIndex, clamped to the valid range.
func New(days []models.WorkoutDay, initialIndex int) (*View, error) {
	if len(days) == 0 {
		return nil, ErrNoDays
	}
	v := &View{days: days}
	v.load(clamp(initialIndex, len(days)))
	return v, nil
}

// load switches to day i and drops everything recorded for the previous day.
// Callers hold mu or own v exclusively.
func (v *View) load(i int) {
	v.index = i
	v.completed = make(map[string]map[int]bool)
	v.collapse = make(map[string]CollapseState)
	v.overrides = models.PerformanceMap{}
	v.timer = NewRestTimer(DefaultBreak(v.days[i]))
}

func (v *View) Index() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index
}

func (v *View) Len() int {
	return len(v.days)
}

// Day returns the day currently shown.
func (v *View) Day() models.WorkoutDay {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.days[v.index]
}

func (v *View) CanPrev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index > 0
}

func (v *View) CanNext() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index < len(v.days)-1
}

// Prev moves one day back. It reports false at the first day.
func (v *View) Prev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index == 0 {
		return false
	}
	v.load(v.index - 1)
	return true
}

// Next moves one day forward. It reports false at the last day.
func (v *View) Next() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index >= len(v.days)-1 {
		return false
	}
	v.load(v.index + 1)
	return true
}

// GoTo shows day i, clamped to the valid range. Landing on another day resets
// completion, collapse and the timer; staying on the same day keeps them.
func (v *View) GoTo(i int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	i = clamp(i, len(v.days))
	if i != v.index {
		v.load(i)
	}
	return v.index
}

func (v *View) exercise(id string) (models.WorkoutExercise, bool) {
	for _, ex := range v.days[v.index].Exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return models.WorkoutExercise{}, false
}

// ToggleSet flips the completion of one set and reports its new state.
// Unknown exercises and set numbers are ignored.
func (v *View) ToggleSet(exerciseID string, setNumber int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	ex, ok := v.exercise(exerciseID)
	if !ok || !hasSet(ex, setNumber) {
		return false
	}
	done := v.completed[exerciseID]
	if done == nil {
		done = make(map[int]bool)
		v.completed[exerciseID] = done
	}
	if done[setNumber] {
		delete(done, setNumber)
	} else {
		done[setNumber] = true
	}
	v.applyAutoCollapse()
	return done[setNumber]
}

func hasSet(ex models.WorkoutExercise, setNumber int) bool {
	for _, s := range ex.Sets {
		if s.SetNumber == setNumber {
			return true
		}
	}
	return false
}

// applyAutoCollapse runs the completion rule over every card of the day.
func (v *View) applyAutoCollapse() {
	for _, ex := range v.days[v.index].Exercises {
		v.collapse[ex.ID] = autoCollapse(v.collapse[ex.ID], v.complete(ex))
	}
}

func (v *View) complete(ex models.WorkoutExercise) bool {
	return len(ex.Sets) > 0 && len(v.completed[ex.ID]) >= len(ex.Sets)
}

func (v *View) IsSetCompleted(exerciseID string, setNumber int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.completed[exerciseID][setNumber]
}

// IsExerciseComplete reports whether every set of the exercise is done.
func (v *View) IsExerciseComplete(exerciseID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	ex, ok := v.exercise(exerciseID)
	return ok && v.complete(ex)
}

// CompletedSets returns the completed set numbers of an exercise in order.
func (v *View) CompletedSets(exerciseID string) []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return sortedSets(v.completed[exerciseID])
}

func sortedSets(done map[int]bool) []int {
	out := make([]int, 0, len(done))
	for n := range done {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Collapse returns the card state of an exercise.
func (v *View) Collapse(exerciseID string) CollapseState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.collapse[exerciseID]
}

// ToggleCollapse flips a card by hand and returns the explicit state it now has.
func (v *View) ToggleCollapse(exerciseID string) CollapseState {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.exercise(exerciseID); !ok {
		return CollapseUnset
	}
	if v.collapse[exerciseID] == CollapseCollapsed {
		v.collapse[exerciseID] = CollapseExpanded
	} else {
		v.collapse[exerciseID] = CollapseCollapsed
	}
	return v.collapse[exerciseID]
}

// SetOverride records reps and weight typed in for one set before they are saved.
func (v *View) SetOverride(exerciseID string, setNumber, reps int, weightKg float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overrides.Set(exerciseID, setNumber, models.SetPerformance{
		Completed: v.completed[exerciseID][setNumber],
		Reps:      reps,
		WeightKg:  weightKg,
	})
}

// Override returns the locally edited values for one set, if any.
func (v *View) Override(exerciseID string, setNumber int) (models.SetPerformance, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.overrides[exerciseID][setNumber]
	if ok {
		p.Completed = v.completed[exerciseID][setNumber]
	}
	return p, ok
}

// Hydrate loads stored performances for the shown day: completed sets are
// marked done and recorded reps and weight become overrides.
func (v *View) Hydrate(perfs models.PerformanceMap) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, ex := range v.days[v.index].Exercises {
		for setNumber, p := range perfs[ex.ID] {
			if !hasSet(ex, setNumber) {
				continue
			}
			if p.Completed {
				if v.completed[ex.ID] == nil {
					v.completed[ex.ID] = make(map[int]bool)
				}
				v.completed[ex.ID][setNumber] = true
			}
			v.overrides.Set(ex.ID, setNumber, p)
		}
	}
	v.applyAutoCollapse()
}

// Timer returns a copy of the rest timer.
func (v *View) Timer() RestTimer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timer
}

func (v *View) StartTimer() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timer.Start()
}

func (v *View) StartTimerWith(seconds int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timer.StartWith(seconds)
}

func (v *View) PauseTimer() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timer.Pause()
}

func (v *View) ResetTimer() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timer.Reset()
}

func (v *View) SetTimerPreset(seconds int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timer.SetPreset(seconds)
}

// Tick advances the rest timer by one second; see RestTimer.Tick.
func (v *View) Tick() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timer.Tick()
}

// ExerciseState is the rendered state of one exercise card.
type ExerciseState struct {
	ID            string        `json:"id"`
	CompletedSets []int         `json:"completedSets"`
	Complete      bool          `json:"complete"`
	Collapse      CollapseState `json:"collapse"`
}

// Snapshot is a consistent copy of the whole view.
type Snapshot struct {
	Index     int             `json:"index"`
	Date      string          `json:"date"`
	CanPrev   bool            `json:"canPrev"`
	CanNext   bool            `json:"canNext"`
	Exercises []ExerciseState `json:"exercises"`
	Timer     RestTimer       `json:"timer"`
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	day := v.days[v.index]
	snap := Snapshot{
		Index:     v.index,
		Date:      day.Date,
		CanPrev:   v.index > 0,
		CanNext:   v.index < len(v.days)-1,
		Exercises: make([]ExerciseState, 0, len(day.Exercises)),
		Timer:     v.timer,
	}
	for _, ex := range day.Exercises {
		snap.Exercises = append(snap.Exercises, ExerciseState{
			ID:            ex.ID,
			CompletedSets: sortedSets(v.completed[ex.ID]),
			Complete:      v.complete(ex),
			Collapse:      v.collapse[ex.ID],
		})
	}
	return snap
}
