package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"linkedboost/internal/config"
	"linkedboost/internal/db"
	"linkedboost/internal/detect"
	"linkedboost/internal/domain"
	"linkedboost/internal/engine"
	"linkedboost/internal/migrate"
	"linkedboost/internal/repo"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("LINKEDIN_ACCESS_TOKEN", "test-token")
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	e := engine.New(conn, cfg, nil)
	e.Now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
	e.Detector.Now = e.Now
	e.Detector.Source = detect.NewSimulatedSource(42)
	e.Runner.Now = e.Now
	e.Runner.Rand = rand.New(rand.NewSource(1))
	e.Runner.Sleep = func(context.Context, time.Duration) {}

	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:              testJWTSecret,
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
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
	if headers == nil {
		req.Header.Set("X-Actor-Id", "tester")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
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

func TestHealthNoAuth(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, map[string]string{})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestUnauthorizedWithoutCredentials(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/automations", nil, map[string]string{})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("code = %s", envelope.Error.Code)
	}
}

func TestJWTAuth(t *testing.T) {
	srv := newTestServer(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "jwt-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/automations", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv := newTestServer(t)
	key := "lbk_test_key"
	if err := srv.Engine.Repo.InsertAPIKey(context.Background(), nil, domain.APIKey{
		ID:      "key-1",
		ActorID: "cli",
		KeyHash: repo.HashAPIKey(key),
	}); err != nil {
		t.Fatalf("insert key: %v", err)
	}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/automations", nil, map[string]string{
		"X-Api-Key": key,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/automations", nil, map[string]string{
		"X-Api-Key": "wrong",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong key status %d", res.StatusCode)
	}
}

func TestAutomationLifecycle(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/automations", map[string]any{
		"name":    "Prospection messages",
		"type":    "messages",
		"content": "Bonjour {prénom}",
		"target":  map[string]any{"type": "new-connections"},
		"schedule": map[string]any{
			"frequency":   "daily",
			"max_actions": 3,
		},
	}, nil)
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", createRes.StatusCode, string(data))
	}
	var created domain.Automation
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal automation: %v", err)
	}
	if created.Status != domain.StatusActive {
		t.Fatalf("status = %s, want active", created.Status)
	}

	execRes, execBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/automations/"+created.ID+"/execute", nil, nil)
	if execRes.StatusCode != http.StatusOK {
		t.Fatalf("execute status %d: %s", execRes.StatusCode, string(execBody))
	}
	var exec ExecutionResponse
	if err := json.Unmarshal(execBody, &exec); err != nil {
		t.Fatalf("unmarshal execution: %v", err)
	}
	if !exec.Success || exec.ActionsPerformed != 3 {
		t.Fatalf("execution = %+v", exec)
	}
	if exec.Automation.Stats.TotalRuns != 1 {
		t.Fatalf("totalRuns = %d", exec.Automation.Stats.TotalRuns)
	}

	pauseRes, pauseBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/automations/"+created.ID+"/pause", nil, nil)
	if pauseRes.StatusCode != http.StatusOK {
		t.Fatalf("pause status %d: %s", pauseRes.StatusCode, string(pauseBody))
	}
	pauseAgain, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/automations/"+created.ID+"/pause", nil, nil)
	if pauseAgain.StatusCode != http.StatusConflict {
		t.Fatalf("second pause status %d, want 409", pauseAgain.StatusCode)
	}

	listRes, listBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/automations?status=paused", nil, nil)
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", listRes.StatusCode, string(listBody))
	}
	var list AutomationListResponse
	if err := json.Unmarshal(listBody, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if list.Count != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("list = %+v", list)
	}

	delRes, _ := doJSON(t, client, http.MethodDelete, srv.URL+"/v0/automations/"+created.ID, nil, nil)
	if delRes.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", delRes.StatusCode)
	}
	getRes, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v0/automations/"+created.ID, nil, nil)
	if getRes.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status %d, want 404", getRes.StatusCode)
	}
}

func TestDetectAndListOpportunities(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/opportunities/detect", map[string]any{
		"min_relevance_score": 5,
		"max_results":         10,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("detect status %d: %s", res.StatusCode, string(data))
	}
	var detected OpportunityListResponse
	if err := json.Unmarshal(data, &detected); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if detected.Count == 0 {
		t.Fatal("no opportunities detected")
	}

	listRes, listBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/opportunities?min_score=5", nil, nil)
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", listRes.StatusCode, string(listBody))
	}
	var listed OpportunityListResponse
	if err := json.Unmarshal(listBody, &listed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if listed.Count != detected.Count {
		t.Fatalf("listed %d, detected %d", listed.Count, detected.Count)
	}

	id := listed.Items[0].ID
	statusRes, statusBody := doJSON(t, client, http.MethodPatch, srv.URL+"/v0/opportunities/"+id+"/status", map[string]any{
		"status": "contacted",
	}, nil)
	if statusRes.StatusCode != http.StatusOK {
		t.Fatalf("status update %d: %s", statusRes.StatusCode, string(statusBody))
	}
	var updated domain.NetworkingOpportunity
	if err := json.Unmarshal(statusBody, &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.Status != "contacted" {
		t.Fatalf("status = %s", updated.Status)
	}
}

func TestConnectionsSyncAndStatus(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/connections/sync", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("sync status %d: %s", res.StatusCode, string(data))
	}
	var sync map[string]int
	if err := json.Unmarshal(data, &sync); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sync["synced"] != 100 {
		t.Fatalf("synced = %d", sync["synced"])
	}

	statusRes, statusBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/status", nil, nil)
	if statusRes.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", statusRes.StatusCode, string(statusBody))
	}
	var status StatusResponse
	if err := json.Unmarshal(statusBody, &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status.Connections != 100 {
		t.Fatalf("connections = %d", status.Connections)
	}
}

func TestProfileAndLimits(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/profile", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("profile status %d: %s", res.StatusCode, string(data))
	}
	var p domain.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.FirstName != "Marie" {
		t.Fatalf("profile = %+v", p)
	}

	limitsRes, limitsBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/limits", nil, nil)
	if limitsRes.StatusCode != http.StatusOK {
		t.Fatalf("limits status %d: %s", limitsRes.StatusCode, string(limitsBody))
	}
	var limits LimitsResponse
	if err := json.Unmarshal(limitsBody, &limits); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if limits.Used != 68 || limits.Total != 100 {
		t.Fatalf("limits = %+v", limits)
	}
}
