package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
)

// HTTPClient implements DataSource by calling the liftlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	default:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var out []models.Template
	return out, c.get(ctx, "/api/v1/templates", nil, &out)
}

func (c *HTTPClient) GetTemplate(ctx context.Context, id int64) (*models.Template, error) {
	var out models.Template
	if err := c.get(ctx, "/api/v1/templates/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListSessions(ctx context.Context, limit, offset int) ([]models.Session, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	var out []models.Session
	return out, c.get(ctx, "/api/v1/sessions", params, &out)
}

func (c *HTTPClient) CompletedSetsBetween(ctx context.Context, start, end time.Time) ([]models.HistoricalSet, error) {
	var out []models.HistoricalSet
	return out, c.get(ctx, "/api/v1/history/sets", timeParams(start, end), &out)
}

// HistoricalSetsForExercise returns the exercise's history across every
// completed session. exclude is not sent.
func (c *HTTPClient) HistoricalSetsForExercise(ctx context.Context, exerciseName string, _ uuid.UUID) ([]models.HistoricalSet, error) {
	var out []models.HistoricalSet
	return out, c.get(ctx, "/api/v1/exercises/"+url.PathEscape(exerciseName)+"/sets", nil, &out)
}

func (c *HTTPClient) GetDataStats(ctx context.Context) (*storage.DataStats, error) {
	var out storage.DataStats
	if err := c.get(ctx, "/api/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settings returns a SettingsSource that reads the server's settings.
func (c *HTTPClient) Settings() SettingsSource {
	return remoteSettings{c}
}

type remoteSettings struct{ c *HTTPClient }

func (r remoteSettings) Get(ctx context.Context) (analytics.Settings, error) {
	var out analytics.Settings
	err := r.c.get(ctx, "/api/v1/settings", nil, &out)
	return out, err
}
