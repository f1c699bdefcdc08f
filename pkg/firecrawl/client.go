package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the Firecrawl v1 API.
const defaultBaseURL = "https://api.firecrawl.dev/v1"

// Crawl job statuses.
const (
	StatusScraping  = "scraping"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Client defines the Firecrawl crawl operations used by the website stage.
type Client interface {
	Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error)
	GetCrawlStatus(ctx context.Context, id string) (*CrawlStatusResponse, error)
}

// CrawlRequest is the body for POST /crawl.
type CrawlRequest struct {
	URL           string         `json:"url"`
	MaxDepth      int            `json:"maxDepth,omitempty"`
	Limit         int            `json:"limit,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

// ScrapeOptions selects the per-page output formats of a crawl.
type ScrapeOptions struct {
	Formats []string `json:"formats,omitempty"`
}

// CrawlResponse is the response from POST /crawl.
type CrawlResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error,omitempty"`
}

// CrawlStatusResponse is the response from GET /crawl/{id}.
type CrawlStatusResponse struct {
	Status    string     `json:"status"`
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Data      []PageData `json:"data"`
}

// PageData represents a single page result from Firecrawl.
type PageData struct {
	Markdown string       `json:"markdown"`
	HTML     string       `json:"html"`
	Metadata PageMetadata `json:"metadata"`
}

// PageMetadata is the per-page metadata block Firecrawl attaches to results.
type PageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Author      string `json:"author"`
	SourceURL   string `json:"sourceURL"`
	URL         string `json:"url"`
	StatusCode  int    `json:"statusCode"`
}

// PageURL returns the best URL known for the page.
func (p PageData) PageURL() string {
	if p.Metadata.SourceURL != "" {
		return p.Metadata.SourceURL
	}
	return p.Metadata.URL
}

// APIError is returned when Firecrawl responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firecrawl: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Firecrawl client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error) {
	var resp CrawlResponse
	if err := c.post(ctx, "/crawl", req, &resp); err != nil {
		return nil, eris.Wrap(err, "firecrawl: start crawl")
	}
	return &resp, nil
}

func (c *httpClient) GetCrawlStatus(ctx context.Context, id string) (*CrawlStatusResponse, error) {
	var resp CrawlStatusResponse
	if err := c.get(ctx, fmt.Sprintf("/crawl/%s", id), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("firecrawl: get crawl status %s", id))
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
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

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
