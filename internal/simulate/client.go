package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/sailrank/internal/adapters/standings"
	"github.com/okian/sailrank/internal/domain/types"
)

// Outcome classifies the answer to a sheet submission.
type Outcome string

// Submission outcomes.
const (
	Accepted     Outcome = "accepted"
	Duplicate    Outcome = "duplicate"
	Rejected     Outcome = "rejected"
	Backpressure Outcome = "backpressure"
)

// ErrUnexpectedStatus reports a response status the client cannot handle.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the service's HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("health status %q", out.Status)
	}
	return nil
}

// Submit posts one sheet. Rejections and backpressure are outcomes, not
// errors.
func (c *Client) Submit(ctx context.Context, sheet Sheet) (Outcome, error) {
	resp, err := c.send(ctx, http.MethodPost, "/events", sheet)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return Accepted, nil
	case http.StatusOK:
		return Duplicate, nil
	case http.StatusBadRequest:
		return Rejected, nil
	case http.StatusTooManyRequests:
		return Backpressure, nil
	default:
		return "", fmt.Errorf("%w: POST /events: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}

// Leaderboard fetches the top n entries.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]standings.Entry, error) {
	var out []standings.Entry
	err := c.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(n), nil, http.StatusOK, &out)
	return out, err
}

// Rank fetches one participant's entry.
func (c *Client) Rank(ctx context.Context, participantID string) (standings.Entry, error) {
	var out standings.Entry
	err := c.do(ctx, http.MethodGet, "/rank/"+url.PathEscape(participantID), nil, http.StatusOK, &out)
	return out, err
}

// Stats fetches the service statistics.
func (c *Client) Stats(ctx context.Context) (types.Stats, error) {
	var out types.Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, http.StatusOK, &out)
	return out, err
}

// Recalculate triggers a full rebuild without decay.
func (c *Client) Recalculate(ctx context.Context) (types.RecalculationReport, error) {
	var out types.RecalculationReport
	err := c.do(ctx, http.MethodPost, "/recalculate", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s: %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
