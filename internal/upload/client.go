package upload

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

	"github.com/claude/spotter/internal/ingest"
)

// errRejected marks responses that retrying cannot fix.
var errRejected = errors.New("rejected by server")

// Client sends CSV exports to the Spotter server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the Spotter server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// SendCSV POSTs an Alpha Progression export to the server's import endpoint.
// Retries up to 3 times with exponential backoff on network errors and 5xx
// responses.
func (c *Client) SendCSV(ctx context.Context, data []byte) (*ingest.Result, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := c.post(ctx, data)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, errRejected) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (c *Client) post(ctx context.Context, data []byte) (*ingest.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/import/alpha", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w (status %d): %s", errRejected, resp.StatusCode, body)
	default:
		return nil, fmt.Errorf("import failed (status %d): %s", resp.StatusCode, body)
	}

	var result ingest.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding import result: %w", err)
	}
	return &result, nil
}
