// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/desertthunder/wkmcp/internal/wanikani"
)

// OpenDatabase creates a migrated in-memory SQLite database scoped to
// the test.
func OpenDatabase(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// MockUpstream is a test double for the WaniKani API client.
type MockUpstream struct {
	User        *wanikani.UserRecord
	UserErr     error
	Collections map[wanikani.Collection][]wanikani.Envelope
	// CollectionErrs lets a single collection fail while others succeed.
	CollectionErrs map[wanikani.Collection]error

	GetUserCalls       atomic.Int64
	GetCollectionCalls atomic.Int64
	Closed             atomic.Bool

	// LastUpdatedAfter records the cursor passed to the most recent
	// collection fetch.
	LastUpdatedAfter *time.Time
}

func (m *MockUpstream) GetUser(ctx context.Context) (*wanikani.UserRecord, error) {
	m.GetUserCalls.Add(1)
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	return m.User, nil
}

func (m *MockUpstream) GetCollection(ctx context.Context, kind wanikani.Collection, updatedAfter *time.Time) ([]wanikani.Envelope, error) {
	m.GetCollectionCalls.Add(1)
	m.LastUpdatedAfter = updatedAfter
	if err := m.CollectionErrs[kind]; err != nil {
		return nil, err
	}
	return m.Collections[kind], nil
}

func (m *MockUpstream) Close() {
	m.Closed.Store(true)
}

// FailWriter always returns an error on Write
type FailWriter struct{}

func (f *FailWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}
