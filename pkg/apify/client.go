package apify

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
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Apify v2 API.
const defaultBaseURL = "https://api.apify.com/v2"

// Run statuses reported by the actor-run API.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
)

// Client defines the Apify actor-run operations used by the scrape stages.
type Client interface {
	StartRun(ctx context.Context, actorID string, input any) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRunItems(ctx context.Context, runID string, limit int) ([]map[string]any, error)
}

// Run is an actor run as returned by POST /acts/{actor}/runs and
// GET /actor-runs/{id}.
type Run struct {
	ID               string     `json:"id"`
	ActID            string     `json:"actId"`
	Status           string     `json:"status"`
	StatusMessage    string     `json:"statusMessage"`
	DefaultDatasetID string     `json:"defaultDatasetId"`
	StartedAt        *time.Time `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt"`
}

type runEnvelope struct {
	Data Run `json:"data"`
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit paces outgoing requests to rps requests per second.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Apify client authenticated with a bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(20), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ActorPath converts "user/actor" into the "user~actor" form used in URLs.
func ActorPath(actorID string) string {
	return strings.ReplaceAll(actorID, "/", "~")
}

func (c *httpClient) StartRun(ctx context.Context, actorID string, input any) (*Run, error) {
	if actorID == "" {
		return nil, eris.New("apify: start run: actor id is required")
	}
	var env runEnvelope
	path := fmt.Sprintf("/acts/%s/runs", url.PathEscape(ActorPath(actorID)))
	if err := c.post(ctx, path, input, &env); err != nil {
		return nil, eris.Wrapf(err, "apify: start run %s", actorID)
	}
	return &env.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var env runEnvelope
	if err := c.get(ctx, fmt.Sprintf("/actor-runs/%s", url.PathEscape(runID)), &env); err != nil {
		return nil, eris.Wrapf(err, "apify: get run %s", runID)
	}
	return &env.Data, nil
}

func (c *httpClient) ListRunItems(ctx context.Context, runID string, limit int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("clean", "true")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/actor-runs/%s/dataset/items?%s", url.PathEscape(runID), q.Encode())

	var items []map[string]any
	if err := c.get(ctx, path, &items); err != nil {
		return nil, eris.Wrapf(err, "apify: list items for run %s", runID)
	}
	if items == nil {
		items = []map[string]any{}
	}
	return items, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	if body == nil {
		body = map[string]any{}
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
