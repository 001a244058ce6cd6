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

	"github.com/claude/spotter/internal/analytics"
	"github.com/claude/spotter/internal/trends"
)

// HTTPClient implements DataSource by calling the Spotter REST API.
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

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Today(ctx context.Context) (*trends.TodayReport, error) {
	var r trends.TodayReport
	if err := c.get(ctx, "/api/v1/today", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) WeeklyVolume(ctx context.Context, weeks int) ([]analytics.WeekVolume, error) {
	params := url.Values{}
	if weeks > 0 {
		params.Set("weeks", strconv.Itoa(weeks))
	}
	var out []analytics.WeekVolume
	if err := c.get(ctx, "/api/v1/trends/weekly-volume", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Consistency(ctx context.Context) (*analytics.Consistency, error) {
	var out analytics.Consistency
	if err := c.get(ctx, "/api/v1/trends/consistency", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) E1RM(ctx context.Context, exercise, formula string) (*trends.E1RMReport, error) {
	params := url.Values{}
	params.Set("exercise", exercise)
	if formula != "" {
		params.Set("formula", formula)
	}
	var out trends.E1RMReport
	if err := c.get(ctx, "/api/v1/trends/e1rm", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Sessions(ctx context.Context, f SessionFilter) ([]trends.SessionSummary, error) {
	params := url.Values{}
	if f.Start != nil {
		params.Set("start", f.Start.Format(time.RFC3339))
	}
	if f.End != nil {
		params.Set("end", f.End.Format(time.RFC3339))
	}
	if f.CompletedOnly {
		params.Set("completed", "true")
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}
	var out []trends.SessionSummary
	if err := c.get(ctx, "/api/v1/sessions", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
