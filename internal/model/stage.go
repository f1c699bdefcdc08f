package model

import (
	"time"
)

// StageName identifies one enrichment stage.
type StageName string

const (
	StageProfile StageName = "profile"
	StageReels   StageName = "reels"
	StageWebsite StageName = "website"
	StageSummary StageName = "summary"
)

// Stages lists every stage in pipeline order.
var Stages = []StageName{StageProfile, StageReels, StageWebsite, StageSummary}

// Valid reports whether s names a known stage.
func (s StageName) Valid() bool {
	switch s {
	case StageProfile, StageReels, StageWebsite, StageSummary:
		return true
	}
	return false
}

// StageStatus is the outcome of a single stage invocation.
type StageStatus string

const (
	StageStatusOK       StageStatus = "ok"
	StageStatusDegraded StageStatus = "degraded"
	StageStatusCached   StageStatus = "cached"
)

// StageResult is either Ok with normalized fields or Degraded with a reason.
// A degraded result is an expected outcome, not an error.
type StageResult[T any] struct {
	Value    T
	Degraded bool
	Reason   string
}

// Ok wraps normalized stage fields.
func Ok[T any](v T) StageResult[T] {
	return StageResult[T]{Value: v}
}

// Degraded builds a degraded result carrying a diagnostic reason.
func Degraded[T any](reason string) StageResult[T] {
	return StageResult[T]{Degraded: true, Reason: reason}
}

// StageReport summarizes a stage invocation for callers and the runs table.
type StageReport struct {
	Stage    StageName      `json:"stage"`
	Status   StageStatus    `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	JobID    string         `json:"job_id,omitempty"`
	JobState string         `json:"job_state,omitempty"`
	Records  int            `json:"records"`
	Duration int64          `json:"duration_ms"`
	CostUSD  float64        `json:"cost_usd,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunReport is the result of a full pipeline invocation.
type RunReport struct {
	RunID     string        `json:"run_id"`
	LeadID    string        `json:"lead_id"`
	Stages    []StageReport `json:"stages"`
	Lead      *Lead         `json:"lead,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  int64         `json:"duration_ms"`
}

// Stage returns the report for the named stage, if present.
func (r *RunReport) Stage(name StageName) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageReport{}, false
}

// Degraded lists the stages that did not complete.
func (r *RunReport) Degraded() []StageName {
	var out []StageName
	for _, s := range r.Stages {
		if s.Status == StageStatusDegraded {
			out = append(out, s.Stage)
		}
	}
	return out
}

// Run is a persisted RunReport.
type Run struct {
	ID        string     `json:"id"`
	LeadID    string     `json:"lead_id"`
	Report    *RunReport `json:"report"`
	CreatedAt time.Time  `json:"created_at"`
}
