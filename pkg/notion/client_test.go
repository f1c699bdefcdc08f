package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/time/rate"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

var _ Client = (*MockClient)(nil)

func TestNewClient_DefaultRateLimit(t *testing.T) {
	c := NewClient("secret").(*client)
	assert.NotNil(t, c.api)
	assert.Equal(t, rate.Limit(3), c.limiter.Limit())
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("secret", WithRateLimit(10)).(*client)
	assert.Equal(t, rate.Limit(10), c.limiter.Limit())
	assert.Equal(t, 10, c.limiter.Burst())

	off := NewClient("secret", WithRateLimit(0)).(*client)
	assert.Nil(t, off.limiter)
	assert.NoError(t, off.wait(context.Background()))
}

func TestWait_CancelledContext(t *testing.T) {
	c := NewClient("secret", WithRateLimit(0.001)).(*client)
	c.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.wait(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "notion: rate limit")
}
