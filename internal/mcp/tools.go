package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/gymio/internal/dayview"
	"github.com/claude/gymio/internal/models"
	"github.com/claude/gymio/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// today returns the current calendar date in the plan timezone.
func (h *handlers) today() string {
	return models.FormatDate(h.now().In(h.loc))
}

// resolveDate defaults an empty date to today and rejects malformed ones.
func (h *handlers) resolveDate(s string) (string, error) {
	if s == "" {
		return h.today(), nil
	}
	if _, err := models.ParseDate(s); err != nil {
		return "", fmt.Errorf("date must be YYYY-MM-DD: %q", s)
	}
	return s, nil
}

// --- Tool definitions ---

var toolGetWeek = mcp.NewTool("get_week",
	mcp.WithDescription("Get the latest imported workout week: every day with its exercises, prescribed sets (reps, weight in kg) and rest breaks. Includes the index of today's day."),
)

var toolGetTodaySession = mcp.NewTool("get_today_session",
	mcp.WithDescription("Get today's session with the recorded performance of each set, keyed by exercise slug and set number."),
)

var toolUpdateSetPerformance = mcp.NewTool("update_set_performance",
	mcp.WithDescription("Record what was actually done for one planned set. Omitted fields keep their stored value."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise slug as returned by get_week (e.g. 'lunes-press-banca')")),
	mcp.WithNumber("set", mcp.Required(), mcp.Description("Set number, starting at 1")),
	mcp.WithString("date", mcp.Description("Day of the set (YYYY-MM-DD). Defaults to today.")),
	mcp.WithNumber("reps", mcp.Description("Repetitions performed")),
	mcp.WithNumber("weight_kg", mcp.Description("Weight used in kg")),
	mcp.WithBoolean("completed", mcp.Description("Whether the set is done")),
)

var toolGetProgress = mcp.NewTool("get_progress",
	mcp.WithDescription("Weekly progress: planned sets and volume, completed sets, adherence percentage and the next exercise to do today."),
)

// --- Tool handlers ---

func (h *handlers) getWeek(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	week, err := h.ds.LatestWeek(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_week", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if week == nil {
		return mcp.NewToolResultError("no workout plan has been imported"), nil
	}

	today := h.today()
	result, err := mcp.NewToolResultJSON(map[string]any{
		"week":         week,
		"today":        today,
		"initialIndex": dayview.ResolveInitialIndex(week.Days, today, ""),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTodaySession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	session, err := h.ds.GetOrCreateSession(ctx, uid, h.today())
	if err != nil {
		h.log.Error("mcp get_today_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	perfs, err := h.ds.SessionPerformances(ctx, session.ID)
	if err != nil {
		h.log.Error("mcp get_today_session perfs", "session", session.ID, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"sessionId": session.ID,
		"date":      session.Date,
		"perfs":     perfs,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) updateSetPerformance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	setNumber, err := req.RequireInt("set")
	if err != nil {
		return mcp.NewToolResultError("set parameter is required"), nil
	}
	date, err := h.resolveDate(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	upd := models.SetUpdate{Date: date, ExerciseSlug: slug, SetNumber: setNumber}
	args := req.GetArguments()
	if _, ok := args["reps"]; ok {
		reps := req.GetInt("reps", 0)
		upd.Reps = &reps
	}
	if _, ok := args["weight_kg"]; ok {
		kg := req.GetFloat("weight_kg", 0)
		upd.WeightKg = &kg
	}
	if _, ok := args["completed"]; ok {
		done := req.GetBool("completed", false)
		upd.Completed = &done
	}
	if err := upd.Validate(); err != nil {
		return mcp.NewToolResultError("invalid update: set must be positive and reps/weight non-negative"), nil
	}

	uid := UserIDFromContext(ctx)
	rec, err := h.ds.UpdateSetPerformance(ctx, uid, upd)
	if errors.Is(err, storage.ErrExerciseNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("exercise %q has no planned set %d on %s", slug, setNumber, date)), nil
	}
	if err != nil {
		h.log.Error("mcp update_set_performance", "slug", slug, "error", err)
		return mcp.NewToolResultError("update failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rec)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProgress(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	week, err := h.ds.LatestWeek(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if week == nil {
		return mcp.NewToolResultError("no workout plan has been imported"), nil
	}

	start, err := models.ParseDate(week.WeekStartDate)
	if err != nil {
		return mcp.NewToolResultError("stored week has a malformed start date"), nil
	}
	end := models.FormatDate(start.AddDate(0, 0, 6))
	completed, err := h.ds.CountCompletedSets(ctx, uid, week.WeekStartDate, end)
	if err != nil {
		h.log.Error("mcp get_progress count", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(models.Summarize(week, h.today(), completed))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
