package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/claude/gymio/internal/dayview"
	"github.com/claude/gymio/internal/ingest/csvplan"
	"github.com/claude/gymio/internal/models"
	"github.com/claude/gymio/internal/storage"
	"github.com/google/uuid"
)

const maxUpdateBody = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

func writeInvalid(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid"})
}

func writeInternal(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	info, ok := userInfoFromContext(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// weekResponse is the payload behind the daily view.
type weekResponse struct {
	Week         *models.WorkoutWeek   `json:"week"`
	Today        string                `json:"today"`
	InitialIndex int                   `json:"initialIndex"`
	RestDefault  int                   `json:"restDefaultSeconds"`
	SessionID    uuid.UUID             `json:"sessionId"`
	Perfs        models.PerformanceMap `json:"perfs"`
	View         dayview.Snapshot      `json:"view"`
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	week, err := s.loadWeek(r.Context(), uid)
	if err != nil {
		s.log.Error("loading week", "user_id", uid, "error", err)
		writeInternal(w)
		return
	}
	if week == nil {
		writeJSON(w, http.StatusOK, map[string]any{"week": nil})
		return
	}

	today := s.today()
	session, err := s.db.GetOrCreateSession(r.Context(), uid, today)
	if err != nil {
		s.log.Error("loading session", "user_id", uid, "error", err)
		writeInternal(w)
		return
	}
	perfs, err := s.db.SessionPerformances(r.Context(), session.ID)
	if err != nil {
		s.log.Error("loading performances", "session", session.ID, "error", err)
		writeInternal(w)
		return
	}

	idx := dayview.ResolveInitialIndex(week.Days, today, r.URL.Query().Get("index"))
	view, err := dayview.New(week.Days, idx)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"week": nil})
		return
	}
	if view.Day().Date == today {
		view.Hydrate(perfs)
	}

	writeJSON(w, http.StatusOK, weekResponse{
		Week:         week,
		Today:        today,
		InitialIndex: view.Index(),
		RestDefault:  dayview.DefaultBreak(view.Day()),
		SessionID:    session.ID,
		Perfs:        perfs,
		View:         view.Snapshot(),
	})
}

// loadWeek returns the user's latest week, seeding it from the configured CSV
// when the user has none. A plan that cannot be seeded yields nil.
func (s *Server) loadWeek(ctx context.Context, uid int) (*models.WorkoutWeek, error) {
	week, err := s.db.LatestWeek(ctx, uid)
	if err != nil || week != nil || s.planCSV == "" {
		return week, err
	}

	start := time.Now()
	result, err := s.plans.SeedFile(ctx, s.planCSV, uid, s.now().In(s.loc))
	s.logImport(uid, "seed", result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		if csvplan.IsPlanError(err) || errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("no plan to seed", "path", s.planCSV, "error", err)
			return nil, nil
		}
		return nil, err
	}
	return s.db.LatestWeek(ctx, uid)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	session, err := s.db.GetOrCreateSession(r.Context(), uid, s.today())
	if err != nil {
		s.log.Error("loading session", "user_id", uid, "error", err)
		writeInternal(w)
		return
	}
	perfs, err := s.db.SessionPerformances(r.Context(), session.ID)
	if err != nil {
		s.log.Error("loading performances", "session", session.ID, "error", err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": session.ID,
		"date":      session.Date,
		"perfs":     perfs,
	})
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var upd models.SetUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody)).Decode(&upd); err != nil {
		s.metrics.CounterSetUpdates.WithLabelValues("invalid").Inc()
		writeInvalid(w)
		return
	}
	if err := upd.Validate(); err != nil {
		s.metrics.CounterSetUpdates.WithLabelValues("invalid").Inc()
		writeInvalid(w)
		return
	}

	rec, err := s.db.UpdateSetPerformance(r.Context(), uid, upd)
	if errors.Is(err, storage.ErrExerciseNotFound) {
		s.metrics.CounterSetUpdates.WithLabelValues("not_found").Inc()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise_not_found"})
		return
	}
	if err != nil {
		s.metrics.CounterSetUpdates.WithLabelValues("error").Inc()
		s.log.Error("updating set", "user_id", uid, "slug", upd.ExerciseSlug, "error", err)
		writeInternal(w)
		return
	}
	s.metrics.CounterSetUpdates.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	week, err := s.db.LatestWeek(r.Context(), uid)
	if err != nil {
		s.log.Error("loading week", "user_id", uid, "error", err)
		writeInternal(w)
		return
	}
	if week == nil {
		writeJSON(w, http.StatusOK, map[string]any{"progress": nil})
		return
	}
	start, err := models.ParseDate(week.WeekStartDate)
	if err != nil {
		s.log.Error("stored week start", "week", week.WeekStartDate, "error", err)
		writeInternal(w)
		return
	}
	end := models.FormatDate(start.AddDate(0, 0, 6))
	completed, err := s.db.CountCompletedSets(r.Context(), uid, week.WeekStartDate, end)
	if err != nil {
		s.log.Error("counting completed sets", "user_id", uid, "error", err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"progress": models.Summarize(week, s.today(), completed),
	})
}
