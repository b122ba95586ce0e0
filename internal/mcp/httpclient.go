package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/gymio/internal/models"
	"github.com/claude/gymio/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the Gymio REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
//
// The server resolves the user from the request identity, so the userID
// arguments are ignored.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. A non-empty
// token is sent as a bearer token for servers running OIDC auth.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// statusError is returned for any non-200 response.
type statusError struct {
	path   string
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("httpclient: %s returned %d: %s", e.path, e.status, bytes.TrimSpace(e.body))
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{path: path, status: resp.StatusCode, body: data}
	}

	return data, nil
}

func (c *HTTPClient) LatestWeek(ctx context.Context, _ int) (*models.WorkoutWeek, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/week", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Week *models.WorkoutWeek `json:"week"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("httpclient: decode week: %w", err)
	}
	return resp.Week, nil
}

type todayResponse struct {
	SessionID uuid.UUID             `json:"sessionId"`
	Date      string                `json:"date"`
	Perfs     models.PerformanceMap `json:"perfs"`
}

func (c *HTTPClient) today(ctx context.Context) (*todayResponse, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/session/today", nil)
	if err != nil {
		return nil, err
	}

	var resp todayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("httpclient: decode session: %w", err)
	}
	if resp.Perfs == nil {
		resp.Perfs = models.PerformanceMap{}
	}
	return &resp, nil
}

// GetOrCreateSession only serves the server's current day. Asking for any
// other date is an error, as is a server whose today differs from ours.
func (c *HTTPClient) GetOrCreateSession(ctx context.Context, _ int, date string) (*models.Session, error) {
	resp, err := c.today(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Date != date {
		return nil, fmt.Errorf("httpclient: server session is for %s, not %s", resp.Date, date)
	}
	return &models.Session{ID: resp.SessionID, Date: resp.Date}, nil
}

func (c *HTTPClient) SessionPerformances(ctx context.Context, sessionID uuid.UUID) (models.PerformanceMap, error) {
	resp, err := c.today(ctx)
	if err != nil {
		return nil, err
	}
	if resp.SessionID != sessionID {
		return nil, fmt.Errorf("httpclient: session %s is not today's session", sessionID)
	}
	return resp.Perfs, nil
}

func (c *HTTPClient) UpdateSetPerformance(ctx context.Context, _ int, upd models.SetUpdate) (*models.SetPerformanceRecord, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/session/update", upd)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return nil, storage.ErrExerciseNotFound
		}
		return nil, err
	}

	var rec models.SetPerformanceRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("httpclient: decode set performance: %w", err)
	}
	return &rec, nil
}

// CountCompletedSets reads the server's progress for the latest week, so the
// range must match that week.
func (c *HTTPClient) CountCompletedSets(ctx context.Context, _ int, from, _ string) (int, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/progress", nil)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Progress *models.Progress `json:"progress"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("httpclient: decode progress: %w", err)
	}
	if resp.Progress == nil {
		return 0, nil
	}
	if resp.Progress.WeekStartDate != from {
		return 0, fmt.Errorf("httpclient: server week starts %s, not %s", resp.Progress.WeekStartDate, from)
	}
	return resp.Progress.CompletedSets, nil
}
