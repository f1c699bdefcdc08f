package job

import (
	"context"
	"errors"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/resilience"
	"github.com/sells-group/lead-enricher/pkg/apify"
	"github.com/sells-group/lead-enricher/pkg/firecrawl"
)

// ProviderApify names the Apify actor-run backend.
const ProviderApify = "apify"

// ApifyClient runs scrape jobs as Apify actor runs.
type ApifyClient struct {
	api     apify.Client
	breaker *resilience.CircuitBreaker
	policy  resilience.Policy
}

// NewApifyClient adapts an Apify API client to the job protocol.
func NewApifyClient(api apify.Client, policy resilience.Policy) *ApifyClient {
	return &ApifyClient{
		api:     api,
		breaker: breakerFor(policy, ProviderApify),
		policy:  policy,
	}
}

// Provider implements Client.
func (c *ApifyClient) Provider() string { return ProviderApify }

// Submit starts an actor run. Spec.Target is the actor ID.
func (c *ApifyClient) Submit(ctx context.Context, spec Spec) (Handle, error) {
	if spec.Target == "" {
		return Handle{}, &SubmissionError{Provider: ProviderApify, Err: eris.New("actor id is required")}
	}

	run, err := resilience.DoVal(ctx, c.policy.ForOperation(ProviderApify, "submit"), func(ctx context.Context) (*apify.Run, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*apify.Run, error) {
			run, err := c.api.StartRun(ctx, spec.Target, spec.Input)
			return run, classify(err)
		})
	})
	if err != nil {
		return Handle{}, submissionError(ProviderApify, err)
	}
	if run.ID == "" {
		return Handle{}, &SubmissionError{Provider: ProviderApify, Err: eris.New("provider returned no run id")}
	}
	return Handle{JobID: run.ID, DatasetRef: run.DefaultDatasetID}, nil
}

// Status implements StatusQuerier.
func (c *ApifyClient) Status(ctx context.Context, h Handle) (Status, error) {
	run, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*apify.Run, error) {
		run, err := c.api.GetRun(ctx, h.JobID)
		return run, classify(err)
	})
	if err != nil {
		return Status{}, statusError(h.JobID, err)
	}
	return Status{
		State:      apifyState(run.Status),
		DatasetRef: run.DefaultDatasetID,
		Message:    run.StatusMessage,
	}, nil
}

// Fetch reads the items the run produced. limit <= 0 returns all items.
func (c *ApifyClient) Fetch(ctx context.Context, h Handle, limit int) ([]Record, error) {
	items, err := resilience.DoVal(ctx, c.policy.ForOperation(ProviderApify, "fetch"), func(ctx context.Context) ([]map[string]any, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]map[string]any, error) {
			items, err := c.api.ListRunItems(ctx, h.JobID, limit)
			return items, classify(err)
		})
	})
	if err != nil {
		return nil, &FetchError{JobID: h.JobID, Err: err}
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, Record(item))
	}
	return out, nil
}

func apifyState(s string) State {
	switch s {
	case apify.StatusReady:
		return StatePending
	case apify.StatusRunning, apify.StatusTimingOut, apify.StatusAborting:
		return StateRunning
	case apify.StatusSucceeded:
		return StateSucceeded
	case apify.StatusFailed:
		return StateFailed
	case apify.StatusTimedOut:
		return StateTimedOut
	case apify.StatusAborted:
		return StateAborted
	default:
		return StateRunning
	}
}

func breakerFor(policy resilience.Policy, provider string) *resilience.CircuitBreaker {
	if policy.Breakers == nil {
		return resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	return policy.Breakers.Get(provider)
}

// classify marks provider API errors carrying a retryable HTTP status, and
// transport failures that never reached the provider, as transient so retry
// and breaker logic can see them.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if code := statusCode(err); code > 0 {
		return resilience.ClassifyStatus(err, code)
	}
	var ue *url.Error
	if errors.As(err, &ue) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return resilience.NewTransientError(err, 0)
	}
	return err
}

func statusCode(err error) int {
	var ae *apify.APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	var fe *firecrawl.APIError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

func submissionError(provider string, err error) *SubmissionError {
	return &SubmissionError{
		Provider:   provider,
		StatusCode: statusCode(err),
		Transient:  resilience.IsTransient(err) || errors.Is(err, resilience.ErrCircuitOpen),
		Err:        err,
	}
}

func statusError(jobID string, err error) error {
	if resilience.IsTransient(err) || errors.Is(err, resilience.ErrCircuitOpen) {
		return &TransientQueryError{JobID: jobID, Err: err}
	}
	return eris.Wrapf(err, "status of job %s", jobID)
}
