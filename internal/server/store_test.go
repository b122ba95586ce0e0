package server

import (
	"context"
	"sync"
	"time"

	"github.com/claude/gymio/internal/models"
	"github.com/claude/gymio/internal/storage"
	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]int
	weeks     map[int]*models.WorkoutWeek
	sessions  map[int]map[string]*models.Session
	perfs     map[uuid.UUID]models.PerformanceMap
	logs      []storage.ImportLog
	pingErr   error
	userCalls int
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]int{},
		weeks:    map[int]*models.WorkoutWeek{},
		sessions: map[int]map[string]*models.Session{},
		perfs:    map[uuid.UUID]models.PerformanceMap{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if id, ok := f.users[login]; ok {
		return id, nil
	}
	id := len(f.users) + 1
	f.users[login] = id
	return id, nil
}

func (f *fakeStore) LatestWeek(_ context.Context, userID int) (*models.WorkoutWeek, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weeks[userID], nil
}

func (f *fakeStore) ReplaceWeek(_ context.Context, userID int, week *models.WorkoutWeek) (*storage.WeekStats, error) {
	if err := week.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weeks[userID] = week
	stats := &storage.WeekStats{Days: len(week.Days)}
	for _, d := range week.Days {
		stats.Exercises += len(d.Exercises)
		for _, ex := range d.Exercises {
			stats.Sets += len(ex.Sets)
		}
	}
	return stats, nil
}

func (f *fakeStore) GetOrCreateSession(_ context.Context, userID int, date string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session(userID, date), nil
}

func (f *fakeStore) session(userID int, date string) *models.Session {
	byDate := f.sessions[userID]
	if byDate == nil {
		byDate = map[string]*models.Session{}
		f.sessions[userID] = byDate
	}
	if s, ok := byDate[date]; ok {
		return s
	}
	s := &models.Session{ID: uuid.New(), UserID: userID, Date: date, CreatedAt: time.Now()}
	byDate[date] = s
	f.perfs[s.ID] = models.PerformanceMap{}
	return s
}

func (f *fakeStore) SessionPerformances(_ context.Context, sessionID uuid.UUID) (models.PerformanceMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := models.PerformanceMap{}
	for slug, sets := range f.perfs[sessionID] {
		for n, p := range sets {
			out.Set(slug, n, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSetPerformance(_ context.Context, userID int, upd models.SetUpdate) (*models.SetPerformanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	week := f.weeks[userID]
	if week == nil {
		return nil, storage.ErrExerciseNotFound
	}
	found := false
	if i := week.DayByDate(upd.Date); i >= 0 {
		for _, ex := range week.Days[i].Exercises {
			if ex.ID != upd.ExerciseSlug {
				continue
			}
			for _, set := range ex.Sets {
				if set.SetNumber == upd.SetNumber {
					found = true
				}
			}
		}
	}
	if !found {
		return nil, storage.ErrExerciseNotFound
	}

	s := f.session(userID, upd.Date)
	p := f.perfs[s.ID][upd.ExerciseSlug][upd.SetNumber]
	if upd.Completed != nil {
		p.Completed = *upd.Completed
	}
	if upd.Reps != nil {
		p.Reps = *upd.Reps
	}
	if upd.WeightKg != nil {
		p.WeightKg = *upd.WeightKg
	}
	f.perfs[s.ID].Set(upd.ExerciseSlug, upd.SetNumber, p)
	return &models.SetPerformanceRecord{
		SessionID:      s.ID,
		Date:           upd.Date,
		ExerciseSlug:   upd.ExerciseSlug,
		SetNumber:      upd.SetNumber,
		SetPerformance: p,
		UpdatedAt:      time.Now(),
	}, nil
}

func (f *fakeStore) CountCompletedSets(_ context.Context, userID int, from, to string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for date, s := range f.sessions[userID] {
		if date < from || date > to {
			continue
		}
		n += f.perfs[s.ID].CompletedCount()
	}
	return n, nil
}

func (f *fakeStore) InsertImportLog(_ context.Context, log storage.ImportLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, log)
	return log.ID, nil
}

func (f *fakeStore) QueryImportLogs(_ context.Context, userID, limit int) ([]storage.ImportLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ImportLog
	for i := len(f.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.logs[i].UserID == userID {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

func (f *fakeStore) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, byDate := range f.sessions {
		n += len(byDate)
	}
	return n
}
