package job

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/resilience"
	"github.com/sells-group/lead-enricher/pkg/firecrawl"
)

// ProviderFirecrawl names the Firecrawl crawl backend.
const ProviderFirecrawl = "firecrawl"

// FirecrawlClient runs website crawls as Firecrawl crawl jobs. Records are
// shaped like website-crawler dataset items so one extractor reads both
// backends.
type FirecrawlClient struct {
	api     firecrawl.Client
	breaker *resilience.CircuitBreaker
	policy  resilience.Policy
}

// NewFirecrawlClient adapts a Firecrawl API client to the job protocol.
func NewFirecrawlClient(api firecrawl.Client, policy resilience.Policy) *FirecrawlClient {
	return &FirecrawlClient{
		api:     api,
		breaker: breakerFor(policy, ProviderFirecrawl),
		policy:  policy,
	}
}

// Provider implements Client.
func (c *FirecrawlClient) Provider() string { return ProviderFirecrawl }

// Submit starts a crawl. Spec.Input carries "url" and optionally
// "maxCrawlDepth" and "maxCrawlPages".
func (c *FirecrawlClient) Submit(ctx context.Context, spec Spec) (Handle, error) {
	in := Record(spec.Input)
	target := in.FirstString("url", "startUrl")
	if target == "" {
		if starts := in.Records("startUrls"); len(starts) > 0 {
			target = starts[0].String("url")
		}
	}
	if target == "" {
		return Handle{}, &SubmissionError{Provider: ProviderFirecrawl, Err: eris.New("crawl url is required")}
	}

	req := firecrawl.CrawlRequest{
		URL:           target,
		MaxDepth:      int(in.Int("maxCrawlDepth")),
		Limit:         int(in.Int("maxCrawlPages")),
		ScrapeOptions: &firecrawl.ScrapeOptions{Formats: []string{"markdown", "html"}},
	}

	resp, err := resilience.DoVal(ctx, c.policy.ForOperation(ProviderFirecrawl, "submit"), func(ctx context.Context) (*firecrawl.CrawlResponse, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*firecrawl.CrawlResponse, error) {
			resp, err := c.api.Crawl(ctx, req)
			return resp, classify(err)
		})
	})
	if err != nil {
		return Handle{}, submissionError(ProviderFirecrawl, err)
	}
	if !resp.Success || resp.ID == "" {
		msg := resp.Error
		if msg == "" {
			msg = "crawl not accepted"
		}
		return Handle{}, &SubmissionError{Provider: ProviderFirecrawl, Err: eris.New(msg)}
	}
	return Handle{JobID: resp.ID, DatasetRef: resp.ID}, nil
}

// Status implements StatusQuerier.
func (c *FirecrawlClient) Status(ctx context.Context, h Handle) (Status, error) {
	resp, err := c.crawlStatus(ctx, h)
	if err != nil {
		return Status{}, statusError(h.JobID, err)
	}
	return Status{State: firecrawlState(resp.Status), DatasetRef: h.JobID}, nil
}

// Fetch returns the crawled pages. Firecrawl embeds results in the status
// response, so this re-reads it.
func (c *FirecrawlClient) Fetch(ctx context.Context, h Handle, limit int) ([]Record, error) {
	resp, err := resilience.DoVal(ctx, c.policy.ForOperation(ProviderFirecrawl, "fetch"), func(ctx context.Context) (*firecrawl.CrawlStatusResponse, error) {
		return c.crawlStatus(ctx, h)
	})
	if err != nil {
		return nil, &FetchError{JobID: h.JobID, Err: err}
	}

	out := make([]Record, 0, len(resp.Data))
	for _, page := range resp.Data {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, pageRecord(page))
	}
	return out, nil
}

func (c *FirecrawlClient) crawlStatus(ctx context.Context, h Handle) (*firecrawl.CrawlStatusResponse, error) {
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*firecrawl.CrawlStatusResponse, error) {
		resp, err := c.api.GetCrawlStatus(ctx, h.JobID)
		return resp, classify(err)
	})
}

func firecrawlState(s string) State {
	switch s {
	case firecrawl.StatusCompleted:
		return StateSucceeded
	case firecrawl.StatusFailed:
		return StateFailed
	case firecrawl.StatusCancelled:
		return StateAborted
	default:
		return StateRunning
	}
}

func pageRecord(p firecrawl.PageData) Record {
	pageURL := p.PageURL()
	return Record{
		"url": pageURL,
		"crawl": map[string]any{
			"depth":      pathDepth(pageURL),
			"httpStatus": p.Metadata.StatusCode,
		},
		"metadata": map[string]any{
			"title":        p.Metadata.Title,
			"description":  p.Metadata.Description,
			"author":       p.Metadata.Author,
			"languageCode": p.Metadata.Language,
		},
		"markdown": p.Markdown,
		"html":     p.HTML,
	}
}

// pathDepth approximates crawl depth by the number of path segments.
func pathDepth(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	depth := 0
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}
