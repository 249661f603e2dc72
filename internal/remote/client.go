// Package remote talks to the backend's relational HTTP API. Two writable
// collections (activity_logs, work_updates) and three read-only reference
// collections looked up by id. No retries here: callers decide what a
// failure means.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Reference collection names.
const (
	CollectionProjects   = "sows"
	CollectionMilestones = "sow_milestones"
	CollectionTasks      = "milestone_tasks"
)

var ErrUnauthorized = fmt.Errorf("remote: unauthorized")

// ActivityLogRow is one row of the detail collection, in the backend's
// column naming.
type ActivityLogRow struct {
	ID              string    `json:"id,omitempty"`
	UserID          string    `json:"user_id"`
	SessionID       string    `json:"session_id"`
	KeystrokeCount  int       `json:"keystroke_count"`
	ClickCount      int       `json:"click_count"`
	DurationSeconds int       `json:"duration_seconds"`
	LogTimestamp    time.Time `json:"log_timestamp"`
	ProjectID       string    `json:"project_id,omitempty"`
	MilestoneID     string    `json:"milestone_id,omitempty"`
	TaskID          string    `json:"task_id,omitempty"`
	WorkDescription string    `json:"work_description,omitempty"`
}

// WorkUpdateRow is one row of the derived aggregate collection.
type WorkUpdateRow struct {
	DeveloperID     string `json:"developer_id"`
	ProjectID       string `json:"project_id,omitempty"`
	MilestoneID     string `json:"milestone_id,omitempty"`
	TaskID          string `json:"task_id"`
	WorkDescription string `json:"work_description"`
	DurationMinutes int    `json:"duration_minutes"`
	WorkDate        string `json:"work_date"`
}

// Ref is the shape of every reference-collection row.
type Ref struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client is a thin wrapper over the HTTP API. The auth token may be swapped
// at runtime (SetSession); the API key is fixed at construction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	mu    sync.Mutex
	token string
}

func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
	}
}

// SetToken installs the auth token used by subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

func (c *Client) InsertActivityLogs(ctx context.Context, rows []ActivityLogRow) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/activity_logs", rows, nil)
}

func (c *Client) InsertWorkUpdates(ctx context.Context, rows []WorkUpdateRow) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/work_updates", rows, nil)
}

// ListActivityLogs returns the newest rows for a user, ordered by log
// timestamp descending.
func (c *Client) ListActivityLogs(ctx context.Context, userID string, limit int) ([]ActivityLogRow, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "log_timestamp.desc")
	q.Set("limit", strconv.Itoa(limit))

	var out []ActivityLogRow
	if err := c.do(ctx, http.MethodGet, "/rest/v1/activity_logs?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LookupRefs fetches {id,title} rows from a reference collection for the
// given id set.
func (c *Client) LookupRefs(ctx context.Context, collection string, ids []string) ([]Ref, error) {
	q := url.Values{}
	q.Set("select", "id,title")
	q.Set("id", "in.("+strings.Join(ids, ",")+")")

	var out []Ref
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+collection+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=minimal")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		token = c.apiKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if strings.TrimSpace(msg) != "" {
		return fmt.Errorf("remote %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("remote status %d", resp.StatusCode)
}
