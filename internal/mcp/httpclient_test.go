package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claude/gymio/internal/models"
	"github.com/claude/gymio/internal/storage"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestLatestWeek verifies the week is unwrapped from the week response and
// the bearer token is forwarded.
func TestLatestWeek(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/week": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization=%q, want Bearer tok", got)
			}
			writeTestJSON(t, w, map[string]any{"week": testWeek(), "today": "2025-01-13"})
		},
	})
	defer ts.Close()

	week, err := NewHTTPClient(ts.URL+"/", "tok").LatestWeek(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if week == nil || week.WeekStartDate != "2025-01-13" || len(week.Days) != 2 {
		t.Fatalf("week = %+v", week)
	}
}

// TestLatestWeekNoPlan verifies a null week decodes to nil without error.
func TestLatestWeekNoPlan(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/week": func(w http.ResponseWriter, _ *http.Request) {
			writeTestJSON(t, w, map[string]any{"week": nil})
		},
	})
	defer ts.Close()

	week, err := NewHTTPClient(ts.URL, "").LatestWeek(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if week != nil {
		t.Errorf("week = %+v, want nil", week)
	}
}

// TestTodaySession verifies session and performances come from the today endpoint.
func TestTodaySession(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/session/today": func(w http.ResponseWriter, _ *http.Request) {
			perfs := models.PerformanceMap{}
			perfs.Set("lunes-press-banca", 1, models.SetPerformance{Completed: true, Reps: 10, WeightKg: 50})
			writeTestJSON(t, w, map[string]any{"sessionId": id, "date": "2025-01-13", "perfs": perfs})
		},
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, "")
	ctx := context.Background()

	session, err := c.GetOrCreateSession(ctx, 1, "2025-01-13")
	if err != nil {
		t.Fatal(err)
	}
	if session.ID != id {
		t.Errorf("session id = %s, want %s", session.ID, id)
	}

	perfs, err := c.SessionPerformances(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p := perfs["lunes-press-banca"][1]; !p.Completed || p.Reps != 10 {
		t.Errorf("perf = %+v, want completed with 10 reps", p)
	}

	if _, err := c.GetOrCreateSession(ctx, 1, "2025-01-14"); err == nil {
		t.Error("expected error for a date other than the server's today")
	}
	if _, err := c.SessionPerformances(ctx, uuid.New()); err == nil {
		t.Error("expected error for a session other than today's")
	}
}

// TestUpdateSet verifies the update body and the 404 mapping.
func TestUpdateSet(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/session/update": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			var upd models.SetUpdate
			if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
				t.Fatal(err)
			}
			if upd.ExerciseSlug != "lunes-press-banca" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"exercise_not_found"}`))
				return
			}
			writeTestJSON(t, w, models.SetPerformanceRecord{
				Date: upd.Date, ExerciseSlug: upd.ExerciseSlug, SetNumber: upd.SetNumber,
				SetPerformance: models.SetPerformance{Reps: *upd.Reps},
			})
		},
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, "")
	reps := 9
	rec, err := c.UpdateSetPerformance(context.Background(), 1, models.SetUpdate{
		Date: "2025-01-13", ExerciseSlug: "lunes-press-banca", SetNumber: 1, Reps: &reps,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Reps != 9 || rec.SetNumber != 1 {
		t.Errorf("record = %+v", rec)
	}

	_, err = c.UpdateSetPerformance(context.Background(), 1, models.SetUpdate{
		Date: "2025-01-13", ExerciseSlug: "nope", SetNumber: 1, Reps: &reps,
	})
	if !errors.Is(err, storage.ErrExerciseNotFound) {
		t.Errorf("err = %v, want ErrExerciseNotFound", err)
	}
}

// TestCountCompletedSets verifies the count is read from the progress endpoint
// and a different week is rejected.
func TestCountCompletedSets(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/progress": func(w http.ResponseWriter, _ *http.Request) {
			writeTestJSON(t, w, map[string]any{"progress": models.Progress{WeekStartDate: "2025-01-13", CompletedSets: 4}})
		},
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, "")
	n, err := c.CountCompletedSets(context.Background(), 1, "2025-01-13", "2025-01-19")
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}

	if _, err := c.CountCompletedSets(context.Background(), 1, "2025-01-06", "2025-01-12"); err == nil {
		t.Error("expected error for a different week")
	}
}

// TestHTTPClientError verifies non-200 responses surface as errors.
func TestHTTPClientError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/week": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "").LatestWeek(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if errors.Is(err, storage.ErrExerciseNotFound) {
		t.Error("401 must not map to ErrExerciseNotFound")
	}
}
