package linkedboostsdk

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
)

// Client is a minimal LinkedBoost HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v0",
		Timeout:  10 * time.Second,
	}
}

// Opportunity represents a detected networking opportunity (partial).
type Opportunity struct {
	ID                string   `json:"id"`
	ContactID         string   `json:"contact_id"`
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	Company           string   `json:"company,omitempty"`
	Position          string   `json:"position,omitempty"`
	ConnectionDegree  int      `json:"connection_degree"`
	MutualConnections int      `json:"mutual_connections"`
	RelevanceScore    int      `json:"relevance_score"`
	Tags              []string `json:"tags,omitempty"`
	Source            string   `json:"source"`
	Status            string   `json:"status"`
	DetectedAt        string   `json:"detected_at"`
}

// Automation represents an automation record (partial).
type Automation struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Target      map[string]any  `json:"target"`
	Content     string          `json:"content,omitempty"`
	Schedule    map[string]any  `json:"schedule"`
	Stats       AutomationStats `json:"stats"`
	LastRun     string          `json:"last_run,omitempty"`
	NextRun     string          `json:"next_run,omitempty"`
}

type AutomationStats struct {
	TotalRuns    int `json:"total_runs"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// Execution is the result of running an automation.
type Execution struct {
	Success          bool       `json:"success"`
	ActionsPerformed int        `json:"actions_performed"`
	Errors           []string   `json:"errors,omitempty"`
	Automation       Automation `json:"automation"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// DetectOptions mirrors the detection filters of POST /opportunities/detect.
type DetectOptions struct {
	Industries        []string `json:"industries,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	Companies         []string `json:"companies,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	MinRelevanceScore int      `json:"min_relevance_score,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	ExcludeConnected  bool     `json:"exclude_connected,omitempty"`
	SortBy            string   `json:"sort_by,omitempty"`
}

// Detect runs opportunity detection and returns the stored results.
func (c *Client) Detect(ctx context.Context, opts DetectOptions) ([]Opportunity, error) {
	var resp struct {
		Items []Opportunity `json:"items"`
	}
	err := c.do(ctx, http.MethodPost, c.path("opportunities/detect"), opts, &resp)
	return resp.Items, err
}

// Opportunities lists stored opportunities, optionally filtered by status.
func (c *Client) Opportunities(ctx context.Context, status string, limit int) ([]Opportunity, error) {
	endpoint := c.path("opportunities")
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Opportunity `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// SetOpportunityStatus moves an opportunity to new, contacted or dismissed.
func (c *Client) SetOpportunityStatus(ctx context.Context, id, status string) (Opportunity, error) {
	var resp Opportunity
	endpoint := c.path(fmt.Sprintf("opportunities/%s/status", url.PathEscape(id)))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// CreateAutomation creates an automation.
func (c *Client) CreateAutomation(ctx context.Context, a Automation) (Automation, error) {
	var resp Automation
	err := c.do(ctx, http.MethodPost, c.path("automations"), a, &resp)
	return resp, err
}

// Automations lists automations, optionally filtered by status.
func (c *Client) Automations(ctx context.Context, status string) ([]Automation, error) {
	endpoint := c.path("automations")
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp struct {
		Items []Automation `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Execute runs an automation immediately.
func (c *Client) Execute(ctx context.Context, id string) (Execution, error) {
	var resp Execution
	endpoint := c.path(fmt.Sprintf("automations/%s/execute", url.PathEscape(id)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Pause pauses an active automation.
func (c *Client) Pause(ctx context.Context, id string) (Automation, error) {
	var resp Automation
	endpoint := c.path(fmt.Sprintf("automations/%s/pause", url.PathEscape(id)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Resume reactivates a paused automation.
func (c *Client) Resume(ctx context.Context, id string) (Automation, error) {
	var resp Automation
	endpoint := c.path(fmt.Sprintf("automations/%s/resume", url.PathEscape(id)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// DeleteAutomation removes an automation.
func (c *Client) DeleteAutomation(ctx context.Context, id string) error {
	endpoint := c.path(fmt.Sprintf("automations/%s", url.PathEscape(id)))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// SyncConnections refreshes the stored 1st-degree connections.
func (c *Client) SyncConnections(ctx context.Context) (int, error) {
	var resp struct {
		Synced int `json:"synced"`
	}
	err := c.do(ctx, http.MethodPost, c.path("connections/sync"), nil, &resp)
	return resp.Synced, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := c.path("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) path(p string) string {
	base := strings.Trim(c.BasePath, "/")
	if base == "" {
		return strings.TrimLeft(p, "/")
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
