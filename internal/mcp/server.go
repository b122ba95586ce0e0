package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Options configures the MCP server.
type Options struct {
	// Location is the plan timezone used to decide which day is today.
	Location *time.Location
	// Now is overridable in tests.
	Now func() time.Time
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, opts Options, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Gymio", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Gymio workout plan server. Read the current week's plan, today's session and weekly progress, and record set performance. All data is scoped to the authenticated user."),
	)

	h := newHandlers(ds, opts, log)

	s.AddTools(
		server.ServerTool{Tool: toolGetWeek, Handler: h.getWeek},
		server.ServerTool{Tool: toolGetTodaySession, Handler: h.getTodaySession},
		server.ServerTool{Tool: toolUpdateSetPerformance, Handler: h.updateSetPerformance},
		server.ServerTool{Tool: toolGetProgress, Handler: h.getProgress},
	)

	s.AddResources(
		server.ServerResource{Resource: resWeek, Handler: h.week},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	loc *time.Location
	now func() time.Time
	log *slog.Logger
}

func newHandlers(ds DataSource, opts Options, log *slog.Logger) *handlers {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &handlers{ds: ds, loc: loc, now: now, log: log}
}

var resWeek = mcp.NewResource(
	"gymio://week",
	"Current Week",
	mcp.WithResourceDescription("The latest imported workout week with today's date"),
	mcp.WithMIMEType("application/json"),
)
