// Package salesforce provides JWT-authenticated REST access to Salesforce
// records.
package salesforce

import (
	"context"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the record-level API the CRM sync uses.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

// Creds holds JWT bearer flow credentials.
type Creds struct {
	LoginURL string
	Username string
	ClientID string
	KeyPEM   string
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for API calls.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps go-salesforce. The library takes no context, so ctx only
// bounds the rate limiter wait.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// Dial authenticates with the JWT bearer flow.
func Dial(creds Creds, opts ...ClientOption) (Client, error) {
	if creds.ClientID == "" || creds.Username == "" || creds.KeyPEM == "" {
		return nil, eris.New("sf: client id, username and private key are required")
	}
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         creds.LoginURL,
		Username:       creds.Username,
		ConsumerKey:    creds.ClientID,
		ConsumerRSAPem: creds.KeyPEM,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sf: authenticate")
	}
	return NewClient(sf, opts...), nil
}

// NewClient wraps an initialized go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return eris.Wrap(c.limiter.Wait(ctx), "sf: rate limit")
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return eris.Wrap(c.sf.Query(soql, out), "sf: query")
}

func (c *sfClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	result, err := c.sf.InsertOne(sObjectName, record)
	if err != nil {
		return "", eris.Wrapf(err, "sf: insert %s", sObjectName)
	}
	if !result.Success {
		return "", eris.Errorf("sf: insert %s failed: %v", sObjectName, result.Errors)
	}
	return result.Id, nil
}

func (c *sfClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	rec := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec["Id"] = id
	return eris.Wrapf(c.sf.UpdateOne(sObjectName, rec), "sf: update %s %s", sObjectName, id)
}
