package wanikani

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/wkmcp/internal/shared"
)

const (
	defaultBaseURL = "https://api.wanikani.com/v2"

	// Pinned API revision, sent on every request.
	apiRevision = "20170710"

	requestTimeout = 30 * time.Second
)

// Collection identifies one paginated WaniKani collection endpoint.
type Collection string

const (
	Subjects         Collection = "subjects"
	Assignments      Collection = "assignments"
	Reviews          Collection = "reviews"
	ReviewStatistics Collection = "review_statistics"
)

func (c Collection) valid() bool {
	switch c {
	case Subjects, Assignments, Reviews, ReviewStatistics:
		return true
	}
	return false
}

// RequestError reports a non-success HTTP status from the upstream API,
// carrying the status code and the endpoint that produced it.
type RequestError struct {
	StatusCode int
	Endpoint   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("wanikani request failed: status %d on %s", e.StatusCode, e.Endpoint)
}

func (e *RequestError) Unwrap() error {
	return shared.ErrAPIRequest
}

// Client provides authenticated access to the WaniKani v2 API for one user's
// credential. All requests share the process-wide [Limiter] passed at
// construction; the client itself never retries a failed request.
type Client struct {
	baseURL    string
	apiKey     string
	limiter    *Limiter
	httpClient *http.Client
}

// NewClient creates a [Client] for the given credential. An empty baseURL
// falls back to the public API, a nil limiter gets the default budget, and a
// nil httpClient gets the default transport with the request timeout.
func NewClient(baseURL, apiKey string, limiter *Limiter, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if limiter == nil {
		limiter = NewLimiter(DefaultRateLimit, DefaultRateWindow)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    limiter,
		httpClient: httpClient,
	}
}

// Close releases the client's idle connections. Safe to call on every exit path.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// get performs one rate-limited, authenticated GET against an absolute URL
// and decodes the JSON response into v.
func (c *Client) get(ctx context.Context, fullURL string, v any) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Wanikani-Revision", apiRevision)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &RequestError{StatusCode: resp.StatusCode, Endpoint: req.URL.Path}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetUser fetches and normalizes the /user profile for the client's credential.
func (c *Client) GetUser(ctx context.Context) (*UserRecord, error) {
	var env userEnvelope
	if err := c.get(ctx, c.baseURL+"/user", &env); err != nil {
		return nil, err
	}
	return NormalizeUser(env.Data)
}

// GetCollection fetches every page of one collection endpoint and returns the
// raw envelopes in page order.
//
// updatedAfter narrows results to records changed after the given instant and
// is sent only on the first page; the next_url locator already encodes the
// full query for subsequent pages.
func (c *Client) GetCollection(ctx context.Context, kind Collection, updatedAfter *time.Time) ([]Envelope, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: unknown collection %q", shared.ErrInvalidArgument, kind)
	}

	next := c.baseURL + "/" + string(kind)
	if updatedAfter != nil {
		query := url.Values{}
		query.Set("updated_after", updatedAfter.UTC().Format(time.RFC3339))
		next += "?" + query.Encode()
	}

	var all []Envelope
	for next != "" {
		var pg page
		if err := c.get(ctx, next, &pg); err != nil {
			return nil, err
		}

		all = append(all, pg.Data...)

		next = ""
		if pg.Pages.NextURL != nil {
			next = *pg.Pages.NextURL
		}
	}

	return all, nil
}
