package gigboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Gigboard HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User represents a platform account (partial).
type User struct {
	ID                int64   `json:"id"`
	Email             string  `json:"email"`
	FirstName         string  `json:"first_name"`
	LastName          string  `json:"last_name"`
	Role              string  `json:"role"`
	RatingScore       float64 `json:"rating_score"`
	CompletedProjects int     `json:"completed_projects"`
	Active            bool    `json:"is_active"`
}

// Project represents the API project model (partial).
type Project struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	Budget     float64 `json:"budget"`
	OwnerID    int64   `json:"owner_id"`
	AssigneeID *int64  `json:"assignee_id,omitempty"`
}

// Application represents a worker's application.
type Application struct {
	ID           int64    `json:"id"`
	ProjectID    int64    `json:"project_id"`
	WorkerID     int64    `json:"worker_id"`
	ProposedRate *float64 `json:"proposed_rate,omitempty"`
	Status       string   `json:"status"`
}

// Contract represents a work agreement.
type Contract struct {
	ID            int64   `json:"id"`
	ProjectID     int64   `json:"project_id"`
	RequesterID   int64   `json:"requester_id"`
	WorkerID      int64   `json:"worker_id"`
	TotalAmount   float64 `json:"total_amount"`
	PlatformFee   float64 `json:"platform_fee"`
	WorkerPayment float64 `json:"worker_payment"`
	Status        string  `json:"status"`
}

// Rating represents a project review.
type Rating struct {
	ID         int64  `json:"id"`
	ProjectID  int64  `json:"project_id"`
	ReviewerID int64  `json:"reviewer_id"`
	RevieweeID int64  `json:"reviewee_id"`
	Score      int    `json:"score"`
	Comment    string `json:"comment,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	ProjectID  int64          `json:"project_id"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    int64          `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps event listings with a cursor.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor int64   `json:"next_cursor"`
}

// Login exchanges an email for a dev token and stores it on the client.
func (c *Client) Login(ctx context.Context, email string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "v1/auth/dev/login", map[string]any{"email": email}, &resp)
	if err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "v1/me", nil, &resp)
	return resp, err
}

// CreateProject creates a draft project.
func (c *Client) CreateProject(ctx context.Context, title, description string, budget float64) (Project, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
		"budget":      budget,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v1/projects", body, &resp)
	return resp, err
}

// PublishProject opens a draft project for applications.
func (c *Client) PublishProject(ctx context.Context, id int64) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/projects/%d/publish", id), map[string]any{}, &resp)
	return resp, err
}

// Apply submits an application to an open project.
func (c *Client) Apply(ctx context.Context, projectID int64, coverLetter string, proposedRate *float64) (Application, error) {
	body := map[string]any{"cover_letter": coverLetter}
	if proposedRate != nil {
		body["proposed_rate"] = *proposedRate
	}
	var resp Application
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/projects/%d/applications", projectID), body, &resp)
	return resp, err
}

// DecideApplication accepts or rejects an application on a project.
func (c *Client) DecideApplication(ctx context.Context, projectID, id int64, accept bool) (Application, error) {
	var resp Application
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/projects/%d/applications/%d/decide", projectID, id), map[string]any{"accept": accept}, &resp)
	return resp, err
}

// ProjectContract fetches a project's latest contract.
func (c *Client) ProjectContract(ctx context.Context, projectID int64) (Contract, error) {
	var resp Contract
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v1/projects/%d/contract", projectID), nil, &resp)
	return resp, err
}

// SignContract records the caller's signature.
func (c *Client) SignContract(ctx context.Context, id int64) (Contract, error) {
	var resp Contract
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/contracts/%d/sign", id), map[string]any{}, &resp)
	return resp, err
}

// CompleteProject finishes a project.
func (c *Client) CompleteProject(ctx context.Context, id int64) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/projects/%d/complete", id), map[string]any{}, &resp)
	return resp, err
}

// SubmitRating rates a completed project.
func (c *Client) SubmitRating(ctx context.Context, projectID int64, score int, comment string) (Rating, error) {
	body := map[string]any{"score": score, "comment": comment}
	var resp Rating
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/projects/%d/ratings", projectID), body, &resp)
	return resp, err
}

// Leaderboard returns the top workers by rating.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]User, error) {
	endpoint := "v1/leaderboard"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []User
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns recent audit events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, 0)
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor int64) (PaginatedEvents, error) {
	endpoint := "v1/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%d", endpoint, sep, cursor)
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
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

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
