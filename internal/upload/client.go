package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meltforce/liftlog/internal/ingest"
)

const maxAttempts = 3

// Client sends export files to a liftlog server over HTTP.
type Client struct {
	serverURL  string
	httpClient *http.Client
	// backoff is the wait before the second attempt; it doubles after that.
	backoff time.Duration
}

// NewClient creates a new HTTP client for the liftlog server.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// ServerURL returns the base URL uploads are sent to.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// SendAlpha POSTs an Alpha Progression CSV export to the server's import
// endpoint. Transport errors and 5xx responses are retried up to 3 times
// with exponential backoff; 4xx responses fail immediately.
func (c *Client) SendAlpha(ctx context.Context, filename string, data []byte) (*ingest.Result, error) {
	endpoint := c.serverURL + "/api/v1/import/alpha?filename=" + url.QueryEscape(filename)

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var result ingest.Result
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("decoding import result: %w", err)
			}
			return &result, nil
		case resp.StatusCode < http.StatusInternalServerError:
			return nil, fmt.Errorf("import rejected (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
		}
		lastErr = fmt.Errorf("import failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}
