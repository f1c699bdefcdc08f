package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-enricher/internal/job"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/store"
	"github.com/sells-group/lead-enricher/pkg/anthropic"
)

// --- Job client mock ---

type mockJobClient struct {
	mock.Mock
	provider string
}

func (m *mockJobClient) Provider() string {
	if m.provider == "" {
		return job.ProviderApify
	}
	return m.provider
}

func (m *mockJobClient) Submit(ctx context.Context, spec job.Spec) (job.Handle, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(job.Handle), args.Error(1)
}

func (m *mockJobClient) Status(ctx context.Context, h job.Handle) (job.Status, error) {
	args := m.Called(ctx, h)
	return args.Get(0).(job.Status), args.Error(1)
}

func (m *mockJobClient) Fetch(ctx context.Context, h job.Handle, limit int) ([]job.Record, error) {
	args := m.Called(ctx, h, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]job.Record), args.Error(1)
}

// --- Anthropic mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Storage mock ---

type mockStorageClient struct {
	mock.Mock
}

func (m *mockStorageClient) Upload(ctx context.Context, bucket, objectPath, contentType string, body []byte) (string, error) {
	args := m.Called(ctx, bucket, objectPath, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *mockStorageClient) Rehost(ctx context.Context, srcURL, bucket, objectPath string) (string, error) {
	args := m.Called(ctx, srcURL, bucket, objectPath)
	return args.String(0), args.Error(1)
}

// --- Store wrappers ---

// countingStore counts field-group writes and can fail them.
type countingStore struct {
	store.Store
	writes    atomic.Int32
	failWrite error
}

func (s *countingStore) write() error {
	s.writes.Add(1)
	return s.failWrite
}

func (s *countingStore) UpdateProfile(ctx context.Context, id string, g model.ProfileGroup) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Store.UpdateProfile(ctx, id, g)
}

func (s *countingStore) UpdateReels(ctx context.Context, id string, g model.ReelsGroup) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Store.UpdateReels(ctx, id, g)
}

func (s *countingStore) UpdateWebsite(ctx context.Context, id string, g model.WebsiteGroup) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Store.UpdateWebsite(ctx, id, g)
}

func (s *countingStore) UpdateAnalysis(ctx context.Context, id string, g model.AnalysisGroup) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Store.UpdateAnalysis(ctx, id, g)
}
