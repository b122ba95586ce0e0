package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/gymio/internal/ingest"
	"github.com/claude/gymio/internal/ingest/csvplan"
	"github.com/claude/gymio/internal/storage"
)

const maxPlanBody = 4 << 20

// handlePlanImport replaces a user's week with an uploaded CSV plan.
// The user is named by the login query parameter and created if needed.
func (s *Server) handlePlanImport(w http.ResponseWriter, r *http.Request) {
	login := r.URL.Query().Get("login")
	if login == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid", "detail": "login parameter required"})
		return
	}
	uid, err := s.db.GetOrCreateUser(r.Context(), login, login)
	if err != nil {
		s.log.Error("resolving user", "login", login, "error", err)
		writeInternal(w)
		return
	}

	start := time.Now()
	result, err := s.plans.Ingest(r.Context(), http.MaxBytesReader(w, r.Body, maxPlanBody), uid, s.now().In(s.loc))
	s.logImport(uid, "upload", result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		var tooBig *http.MaxBytesError
		if csvplan.IsPlanError(err) || errors.As(err, &tooBig) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid", "detail": err.Error()})
			return
		}
		s.log.Error("plan import", "login", login, "error", err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		s.log.Error("querying import logs", "user_id", uid, "error", err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an import operation's result to the import_logs table.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}
	s.metrics.CounterPlanImports.WithLabelValues(source, status).Inc()

	entry := storage.ImportLog{
		UserID:       uid,
		Source:       source,
		Status:       status,
		DurationMs:   &durationMs,
		ErrorMessage: errMsg,
	}
	if result != nil {
		week := result.WeekStartDate
		entry.WeekStartDate = &week
		entry.RowsReceived = result.RowsReceived
		entry.RowsSkipped = result.RowsSkipped
		entry.RowsDefaulted = result.RowsDefaulted
		entry.SetsStored = result.SetsStored
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
