package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"gigboard/internal/config"
	"gigboard/internal/db"
	"gigboard/internal/domain"
	"gigboard/internal/engine"
	"gigboard/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	cfg := config.Default()
	cfg.Auth.DevLogin = true
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{Engine: e, Auth: AuthConfig{JWTSecret: "test-secret"}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

// registerAndLogin creates an account and returns it with a bearer token.
func registerAndLogin(t *testing.T, srv *testServer, email, role string) (domain.User, string) {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/users/register", map[string]any{
		"email":      email,
		"first_name": "Test",
		"last_name":  "User",
		"role":       role,
	}, "")
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/dev/login", map[string]any{
		"email": email,
	}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, res.StatusCode, string(data))
	}
	var resp TokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected token for %s", email)
	}
	return resp.User, resp.Token
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return envelope.Error.Code
}

func TestProjectLifecycleHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, ownerToken := registerAndLogin(t, srv, "owner@example.com", "requester")
	worker, workerToken := registerAndLogin(t, srv, "worker@example.com", "worker")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"title":       "Build a landing page",
		"description": "Responsive marketing site",
		"budget":      1000,
	}, ownerToken)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %d %s", res.StatusCode, string(data))
	}
	var project domain.Project
	if err := json.Unmarshal(data, &project); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	if project.Status != "draft" {
		t.Fatalf("expected draft, got %s", project.Status)
	}

	res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/projects/%d/publish", srv.URL, project.ID), nil, ownerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("publish: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/projects/%d/applications", srv.URL, project.ID), map[string]any{
		"cover_letter":  "I can do this",
		"proposed_rate": 800,
	}, workerToken)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("apply: %d %s", res.StatusCode, string(data))
	}
	var app domain.Application
	if err := json.Unmarshal(data, &app); err != nil {
		t.Fatalf("unmarshal application: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/projects/%d/applications/%d/decide", srv.URL, project.ID, app.ID), map[string]any{
		"accept": true,
	}, ownerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("accept: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/v1/projects/%d/contract", srv.URL, project.ID), nil, ownerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get contract: %d %s", res.StatusCode, string(data))
	}
	var contract domain.Contract
	if err := json.Unmarshal(data, &contract); err != nil {
		t.Fatalf("unmarshal contract: %v", err)
	}
	if contract.TotalAmount != 800 {
		t.Fatalf("expected total 800, got %v", contract.TotalAmount)
	}

	for _, token := range []string{ownerToken, workerToken} {
		res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/contracts/%d/sign", srv.URL, contract.ID), nil, token)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("sign: %d %s", res.StatusCode, string(data))
		}
	}
	if err := json.Unmarshal(data, &contract); err != nil {
		t.Fatalf("unmarshal signed contract: %v", err)
	}
	if contract.Status != "active" {
		t.Fatalf("expected active after both signatures, got %s", contract.Status)
	}

	res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/projects/%d/complete", srv.URL, project.ID), nil, ownerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete: %d %s", res.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, &project); err != nil {
		t.Fatalf("unmarshal completed project: %v", err)
	}
	if project.Status != "completed" {
		t.Fatalf("expected completed, got %s", project.Status)
	}

	res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/projects/%d/ratings", srv.URL, project.ID), map[string]any{
		"score":   5,
		"comment": "great work",
	}, ownerToken)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("rating: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/leaderboard", nil, ownerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard: %d %s", res.StatusCode, string(data))
	}
	var board []domain.User
	if err := json.Unmarshal(data, &board); err != nil {
		t.Fatalf("unmarshal leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].ID != worker.ID {
		t.Fatalf("expected worker on leaderboard, got %v", board)
	}
	if board[0].RatingScore != 5 {
		t.Fatalf("expected score 5, got %v", board[0].RatingScore)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects", nil, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %s", code)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects", nil, "not-a-jwt")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d %s", res.StatusCode, string(data))
	}

	// health stays open
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/health", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected open health endpoint, got %d", res.StatusCode)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, ownerToken := registerAndLogin(t, srv, "owner@example.com", "requester")
	_, workerToken := registerAndLogin(t, srv, "worker@example.com", "worker")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"title":       "Envelope check",
		"description": "status codes",
		"budget":      100,
	}, ownerToken)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %d %s", res.StatusCode, string(data))
	}
	var project domain.Project
	_ = json.Unmarshal(data, &project)

	// workers cannot create projects
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"title":       "Nope",
		"description": "no",
		"budget":      100,
	}, workerToken)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "forbidden" {
		t.Fatalf("expected forbidden code, got %s", code)
	}

	// draft projects do not accept applications
	res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/projects/%d/applications", srv.URL, project.ID), map[string]any{
		"cover_letter": "too early",
	}, workerToken)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "invalid_state" {
		t.Fatalf("expected invalid_state code, got %s", code)
	}

	// double publish
	res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/projects/%d/publish", srv.URL, project.ID), nil, ownerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("publish: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/projects/%d/publish", srv.URL, project.ID), nil, ownerToken)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second publish, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "invalid_state" {
		t.Fatalf("expected invalid_state code, got %s", code)
	}

	// missing entity
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/projects/9999", nil, ownerToken)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "not_found" {
		t.Fatalf("expected not_found code, got %s", code)
	}

	// bad argument
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"title":       "Free work",
		"description": "zero budget",
		"budget":      0,
	}, ownerToken)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", res.StatusCode, string(data))
	}
}

func TestEventsPagination(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, ownerToken := registerAndLogin(t, srv, "owner@example.com", "requester")
	for i := 0; i < 3; i++ {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
			"title":       fmt.Sprintf("Project %d", i),
			"description": "event source",
			"budget":      100,
		}, ownerToken)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create %d: %d %s", i, res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/events?limit=2", nil, ownerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", res.StatusCode, string(data))
	}
	var page paginatedEvents
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 events, got %d", len(page.Items))
	}
	if page.NextCursor == 0 {
		t.Fatalf("expected next cursor")
	}

	res, data = doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/v1/events?limit=10&cursor=%d", srv.URL, page.NextCursor), nil, ownerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second page: %d %s", res.StatusCode, string(data))
	}
	var rest paginatedEvents
	if err := json.Unmarshal(data, &rest); err != nil {
		t.Fatalf("unmarshal second page: %v", err)
	}
	if len(rest.Items) == 0 {
		t.Fatalf("expected remaining events")
	}
	for _, evt := range rest.Items {
		if evt.ID >= page.Items[len(page.Items)-1].ID {
			t.Fatalf("cursor overlap: event %d", evt.ID)
		}
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, ownerToken := registerAndLogin(t, srv, "owner@example.com", "requester")
	registerAndLogin(t, srv, "worker@example.com", "worker")
	_, opsToken := registerAndLogin(t, srv, "ops@example.com", "operator")

	// operators only
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/stats", nil, ownerToken)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for requester, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/stats", nil, opsToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats: %d %s", res.StatusCode, string(data))
	}
	var stats domain.PlatformStats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.TotalUsers != 3 || stats.TotalWorkers != 1 || stats.TotalRequesters != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
