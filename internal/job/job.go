// Package job implements the submit/poll/fetch protocol shared by every
// external scrape provider.
package job

import (
	"context"
)

// State is the lifecycle state of an external job.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateTimedOut  State = "TIMED_OUT"
	StateAborted   State = "ABORTED"
)

// Terminal reports whether no further transition can occur from s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateAborted:
		return true
	}
	return false
}

// Handle identifies a submitted job. DatasetRef stays empty until the
// provider reports where results live.
type Handle struct {
	JobID      string `json:"job_id"`
	DatasetRef string `json:"dataset_ref,omitempty"`
}

// WithDataset returns a copy of h pointing at the given dataset.
func (h Handle) WithDataset(ref string) Handle {
	if ref != "" {
		h.DatasetRef = ref
	}
	return h
}

// Spec is a provider- and stage-specific job payload.
type Spec struct {
	// Target selects what runs the job (an actor ID for Apify, unused by
	// Firecrawl).
	Target string
	Input  map[string]any
	// Limit caps how many records Fetch returns; zero means provider default.
	Limit int
}

// Status is a point-in-time view of a job.
type Status struct {
	State      State
	DatasetRef string
	Message    string
}

// StatusQuerier reports job status. It is the only dependency of Poll.
type StatusQuerier interface {
	Status(ctx context.Context, h Handle) (Status, error)
}

// Client submits jobs, reports their status and fetches their output.
type Client interface {
	StatusQuerier
	Submit(ctx context.Context, spec Spec) (Handle, error)
	Fetch(ctx context.Context, h Handle, limit int) ([]Record, error)
	Provider() string
}
