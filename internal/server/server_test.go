package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/wkmcp/internal/auth"
	"github.com/desertthunder/wkmcp/internal/repositories"
	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/desertthunder/wkmcp/internal/sync"
	tu "github.com/desertthunder/wkmcp/internal/testing"
	"github.com/desertthunder/wkmcp/internal/views"
	"github.com/desertthunder/wkmcp/internal/wanikani"
)

func newTestServer(t *testing.T, mock *tu.MockUpstream) *Server {
	t.Helper()

	db := tu.OpenDatabase(t)
	repos := sync.Repos{
		Users:       repositories.NewUserRepository(db),
		Assignments: repositories.NewAssignmentRepository(db),
		Stats:       repositories.NewReviewStatisticRepository(db),
		Subjects:    repositories.NewSubjectRepository(db),
		Logs:        repositories.NewSyncLogRepository(db),
	}

	factory := func(apiKey string) sync.Upstream { return mock }
	service := sync.NewService(repos, factory, shared.SyncConfig{}, nil)
	registrar := auth.NewRegistrar(repos.Users, factory, nil)
	builder := views.NewBuilder(repos.Users, repos.Assignments, repos.Stats, repos.Subjects, repos.Logs)

	cfg := shared.ServerConfig{Host: "127.0.0.1", Port: 0, RegisterRate: 100, RegisterBurst: 100}
	return New(cfg, registrar, builder, service, nil)
}

func postJSON(t *testing.T, handler http.Handler, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func registerTestUser(t *testing.T, handler http.Handler) string {
	t.Helper()

	rec := postJSON(t, handler, "/register", "", map[string]string{"wanikani_api_key": "wk-token"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("registration failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.APIKey
}

func defaultMock() *tu.MockUpstream {
	return &tu.MockUpstream{User: &wanikani.UserRecord{Username: "crabigator", Level: 12}}
}

func TestHealthAndRoot(t *testing.T) {
	handler := newTestServer(t, defaultMock()).Handler()

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s: expected JSON, got %q", path, ct)
		}
	}
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := newTestServer(t, defaultMock()).Handler()

		rec := postJSON(t, handler, "/register", "", map[string]string{"wanikani_api_key": "wk-token"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Username string `json:"username"`
			Level    int    `json:"level"`
			APIKey   string `json:"api_key"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Username != "crabigator" || resp.Level != 12 {
			t.Errorf("unexpected profile: %+v", resp)
		}
		if resp.APIKey == "" {
			t.Error("response should carry the one-time plaintext key")
		}
	})

	t.Run("InvalidToken", func(t *testing.T) {
		mock := defaultMock()
		mock.User = nil
		mock.UserErr = &wanikani.RequestError{StatusCode: 401, Endpoint: "/user"}
		handler := newTestServer(t, mock).Handler()

		rec := postJSON(t, handler, "/register", "", map[string]string{"wanikani_api_key": "bad"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("MissingToken", func(t *testing.T) {
		handler := newTestServer(t, defaultMock()).Handler()

		rec := postJSON(t, handler, "/register", "", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		handler := newTestServer(t, defaultMock()).Handler()
		registerTestUser(t, handler)

		rec := postJSON(t, handler, "/register", "", map[string]string{"wanikani_api_key": "wk-token"})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("Throttled", func(t *testing.T) {
		db := tu.OpenDatabase(t)
		repos := sync.Repos{Users: repositories.NewUserRepository(db)}
		factory := func(apiKey string) sync.Upstream { return defaultMock() }
		registrar := auth.NewRegistrar(repos.Users, factory, nil)

		cfg := shared.ServerConfig{RegisterRate: 0.001, RegisterBurst: 1}
		handler := New(cfg, registrar, nil, nil, nil).Handler()

		first := postJSON(t, handler, "/register", "", map[string]string{"wanikani_api_key": "wk-token"})
		if first.Code != http.StatusCreated {
			t.Fatalf("first request should pass, got %d", first.Code)
		}

		second := postJSON(t, handler, "/register", "", map[string]string{"wanikani_api_key": "wk-other"})
		if second.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429 once the burst is spent, got %d", second.Code)
		}
	})
}

func TestMCPAuth(t *testing.T) {
	handler := newTestServer(t, defaultMock()).Handler()
	apiKey := registerTestUser(t, handler)

	t.Run("MissingToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 without a bearer token, got %d", rec.Code)
		}
	})

	t.Run("WrongToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for an unknown key, got %d", rec.Code)
		}
	})

	t.Run("ValidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
		req.Header.Set("Authorization", "Bearer "+apiKey)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		names := map[string]bool{}
		for _, tool := range resp.Tools {
			names[tool.Name] = true
		}
		for _, want := range []string{"get_status", "get_leeches", "sync_data"} {
			if !names[want] {
				t.Errorf("tool catalog missing %q", want)
			}
		}
	})
}

func TestToolCalls(t *testing.T) {
	handler := newTestServer(t, defaultMock()).Handler()
	apiKey := registerTestUser(t, handler)

	t.Run("GetStatus", func(t *testing.T) {
		rec := postJSON(t, handler, "/mcp/tools/call", apiKey, map[string]any{"name": "get_status"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var status struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if status.Username != "crabigator" {
			t.Errorf("unexpected status payload: %s", rec.Body.String())
		}
	})

	t.Run("SyncData", func(t *testing.T) {
		rec := postJSON(t, handler, "/mcp/tools/call", apiKey, map[string]any{"name": "sync_data"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Status         string `json:"status"`
			RecordsUpdated int    `json:"records_updated"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "success" {
			t.Errorf("expected success, got %q", resp.Status)
		}
		if resp.RecordsUpdated == 0 {
			t.Error("the profile refresh should count as an update")
		}
	})

	t.Run("GetLeeches", func(t *testing.T) {
		rec := postJSON(t, handler, "/mcp/tools/call", apiKey, map[string]any{
			"name":      "get_leeches",
			"arguments": map[string]any{"limit": 5},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			TotalLeeches int `json:"total_leeches"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.TotalLeeches != 0 {
			t.Errorf("fresh mirror should have no leeches, got %d", resp.TotalLeeches)
		}
	})

	t.Run("UnknownTool", func(t *testing.T) {
		rec := postJSON(t, handler, "/mcp/tools/call", apiKey, map[string]any{"name": "explode"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for an unknown tool, got %d", rec.Code)
		}
	})
}

func TestResources(t *testing.T) {
	handler := newTestServer(t, defaultMock()).Handler()
	apiKey := registerTestUser(t, handler)

	get := func(t *testing.T, path string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+apiKey)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("List", func(t *testing.T) {
		rec := get(t, "/mcp/resources")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Resources []struct {
				URI string `json:"uri"`
			} `json:"resources"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Resources) != 3 {
			t.Errorf("expected 3 resources, got %d", len(resp.Resources))
		}
	})

	t.Run("ReadProgress", func(t *testing.T) {
		rec := get(t, "/mcp/resources/read?uri=wanikani://user_progress")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("ReadForecast", func(t *testing.T) {
		rec := get(t, "/mcp/resources/read?uri=wanikani://review_forecast")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("UnknownURI", func(t *testing.T) {
		rec := get(t, "/mcp/resources/read?uri=wanikani://nope")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}
