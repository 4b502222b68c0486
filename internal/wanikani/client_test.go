package wanikani_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/wkmcp/internal/shared"
	tu "github.com/desertthunder/wkmcp/internal/testing"
	"github.com/desertthunder/wkmcp/internal/wanikani"
)

func testLimiter() *wanikani.Limiter {
	return wanikani.NewLimiter(1000, time.Minute)
}

func TestClientGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotAuth, gotRevision string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotRevision = r.Header.Get("Wanikani-Revision")
			fmt.Fprint(w, `{
				"object": "user",
				"data": {
					"username": "crabigator",
					"level": 12,
					"profile_url": "https://www.wanikani.com/users/crabigator",
					"started_at": "2024-01-15T08:00:00Z",
					"subscription": {"active": true, "type": "recurring", "max_level_granted": 60}
				}
			}`)
		}))
		defer ts.Close()

		client := wanikani.NewClient(ts.URL, "wk-token", testLimiter(), nil)
		defer client.Close()

		user, err := client.GetUser(context.Background())
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}

		if gotAuth != "Bearer wk-token" {
			t.Errorf("expected bearer auth header, got %q", gotAuth)
		}
		if gotRevision != "20170710" {
			t.Errorf("expected pinned revision header, got %q", gotRevision)
		}
		if user.Username != "crabigator" || user.Level != 12 {
			t.Errorf("unexpected profile: %+v", user)
		}
		if !user.SubscriptionActive || user.SubscriptionType == nil || *user.SubscriptionType != "recurring" {
			t.Errorf("subscription not normalized: %+v", user)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer ts.Close()

		client := wanikani.NewClient(ts.URL, "bad-token", testLimiter(), nil)
		defer client.Close()

		_, err := client.GetUser(context.Background())
		if err == nil {
			t.Fatal("expected error for 401")
		}

		var reqErr *wanikani.RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected RequestError, got %T", err)
		}
		if reqErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", reqErr.StatusCode)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("RequestError should unwrap to ErrAPIRequest")
		}
	})
}

func TestClientGetCollection(t *testing.T) {
	t.Run("FollowsPagination", func(t *testing.T) {
		var requests []string
		var ts *httptest.Server
		ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.URL.String())

			page := map[string]any{
				"object":      "collection",
				"total_count": 3,
			}
			if r.URL.Query().Get("page_after_id") == "" {
				page["pages"] = map[string]any{"next_url": ts.URL + "/assignments?page_after_id=2"}
				page["data"] = []map[string]any{
					{"id": 1, "object": "assignment", "data": map[string]any{"subject_id": 10, "subject_type": "kanji", "srs_stage": 2}},
					{"id": 2, "object": "assignment", "data": map[string]any{"subject_id": 11, "subject_type": "radical", "srs_stage": 5}},
				}
			} else {
				page["pages"] = map[string]any{"next_url": nil}
				page["data"] = []map[string]any{
					{"id": 3, "object": "assignment", "data": map[string]any{"subject_id": 12, "subject_type": "vocabulary", "srs_stage": 0}},
				}
			}
			json.NewEncoder(w).Encode(page)
		}))
		defer ts.Close()

		client := wanikani.NewClient(ts.URL, "wk-token", testLimiter(), nil)
		defer client.Close()

		envs, err := client.GetCollection(context.Background(), wanikani.Assignments, nil)
		if err != nil {
			t.Fatalf("GetCollection failed: %v", err)
		}

		if len(envs) != 3 {
			t.Fatalf("expected 3 envelopes across pages, got %d", len(envs))
		}
		if envs[0].ID != 1 || envs[2].ID != 3 {
			t.Errorf("envelopes out of page order: %v, %v", envs[0].ID, envs[2].ID)
		}
		if len(requests) != 2 {
			t.Errorf("expected 2 page requests, got %d: %v", len(requests), requests)
		}
	})

	t.Run("UpdatedAfterOnFirstPageOnly", func(t *testing.T) {
		var requests []string
		var ts *httptest.Server
		ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.URL.String())

			page := map[string]any{"object": "collection", "data": []any{}}
			if len(requests) == 1 {
				page["pages"] = map[string]any{"next_url": ts.URL + "/assignments?page_after_id=99"}
			} else {
				page["pages"] = map[string]any{"next_url": nil}
			}
			json.NewEncoder(w).Encode(page)
		}))
		defer ts.Close()

		client := wanikani.NewClient(ts.URL, "wk-token", testLimiter(), nil)
		defer client.Close()

		cursor := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		if _, err := client.GetCollection(context.Background(), wanikani.Assignments, &cursor); err != nil {
			t.Fatalf("GetCollection failed: %v", err)
		}

		if len(requests) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(requests))
		}

		first, _ := http.NewRequest(http.MethodGet, ts.URL+requests[0], nil)
		if got := first.URL.Query().Get("updated_after"); got != "2025-03-01T00:00:00Z" {
			t.Errorf("first page should carry updated_after, got %q", got)
		}

		second, _ := http.NewRequest(http.MethodGet, ts.URL+requests[1], nil)
		if got := second.URL.Query().Get("updated_after"); got != "" {
			t.Errorf("second page should rely on next_url verbatim, got updated_after=%q", got)
		}
	})

	t.Run("UnknownCollection", func(t *testing.T) {
		client := wanikani.NewClient("http://localhost:1", "wk-token", testLimiter(), nil)
		defer client.Close()

		_, err := client.GetCollection(context.Background(), wanikani.Collection("bogus"), nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer ts.Close()

		client := wanikani.NewClient(ts.URL, "wk-token", testLimiter(), nil)
		defer client.Close()

		_, err := client.GetCollection(context.Background(), wanikani.Assignments, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Failed HTTP Request", func(t *testing.T) {
		httpClient := &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
		}

		client := wanikani.NewClient("http://example.com", "wk-token", testLimiter(), httpClient)
		defer client.Close()

		_, err := client.GetCollection(context.Background(), wanikani.Assignments, nil)
		if err == nil {
			t.Fatal("expected error for failed request")
		}
		if !strings.Contains(err.Error(), "request failed") {
			t.Errorf("expected 'request failed' error, got %v", err)
		}
	})

	t.Run("Malformed Response Body", func(t *testing.T) {
		httpClient := &http.Client{
			Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("not json")),
				Header:     http.Header{},
			}, nil),
		}

		client := wanikani.NewClient("http://example.com", "wk-token", testLimiter(), httpClient)
		defer client.Close()

		_, err := client.GetUser(context.Background())
		if err == nil {
			t.Fatal("expected error for malformed body")
		}
		if !strings.Contains(err.Error(), "failed to decode response") {
			t.Errorf("expected 'failed to decode response' error, got %v", err)
		}
	})
}
