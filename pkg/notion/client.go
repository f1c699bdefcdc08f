// Package notion wraps the Notion API for lead queue databases.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the subset of the Notion API the lead queue needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*client)

// WithRateLimit overrides the default 3 req/s. Zero or less disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

type client struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient creates a throttled Notion client for the integration token.
func NewClient(token string, opts ...ClientOption) Client {
	c := &client{
		api:     notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return eris.Wrap(c.limiter.Wait(ctx), "notion: rate limit")
}

func (c *client) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", dbID)
	}
	return resp, nil
}

func (c *client) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Create(ctx, req)
	return page, eris.Wrap(err, "notion: create page")
}

func (c *client) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	return page, eris.Wrapf(err, "notion: update page %s", pageID)
}
