package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/model"
)

// maxReasons bounds the per-stage reason breakdown.
const maxReasons = 3

// RunLister is the slice of the store the collector reads.
type RunLister interface {
	RecentRuns(ctx context.Context, since time.Time, limit int) ([]model.Run, error)
}

// ReasonCount is one degradation reason and how often it occurred.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// StageStats aggregates one stage's outcomes across runs.
type StageStats struct {
	Stage        model.StageName `json:"stage"`
	Total        int             `json:"total"`
	OK           int             `json:"ok"`
	Degraded     int             `json:"degraded"`
	Cached       int             `json:"cached"`
	DegradedRate float64         `json:"degraded_rate"`
	CostUSD      float64         `json:"cost_usd"`
	TopReasons   []ReasonCount   `json:"top_reasons,omitempty"`
}

// Snapshot holds a point-in-time view of enrichment health.
type Snapshot struct {
	Runs          int          `json:"runs"`
	Stages        []StageStats `json:"stages"`
	CostUSD       float64      `json:"cost_usd"`
	LookbackHours int          `json:"lookback_hours"`
	CollectedAt   time.Time    `json:"collected_at"`
}

// Stage returns the stats for name, or zero stats if the stage never ran.
func (s *Snapshot) Stage(name model.StageName) StageStats {
	for _, st := range s.Stages {
		if st.Stage == name {
			return st
		}
	}
	return StageStats{Stage: name}
}

// Collector builds snapshots from the runs table.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: func() time.Time { return time.Now().UTC() }}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now()
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.RecentRuns(ctx, cutoff, 0)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap := &Snapshot{
		Runs:          len(runs),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	stats := make(map[model.StageName]*StageStats, len(model.Stages))
	reasons := make(map[model.StageName]map[string]int, len(model.Stages))
	for _, name := range model.Stages {
		stats[name] = &StageStats{Stage: name}
		reasons[name] = make(map[string]int)
	}

	for _, r := range runs {
		if r.Report == nil {
			continue
		}
		for _, sr := range r.Report.Stages {
			st, ok := stats[sr.Stage]
			if !ok {
				continue
			}
			st.Total++
			st.CostUSD += sr.CostUSD
			snap.CostUSD += sr.CostUSD
			switch sr.Status {
			case model.StageStatusOK:
				st.OK++
			case model.StageStatusCached:
				st.Cached++
			case model.StageStatusDegraded:
				st.Degraded++
				if sr.Reason != "" {
					reasons[sr.Stage][sr.Reason]++
				}
			}
		}
	}

	for _, name := range model.Stages {
		st := stats[name]
		if st.Total > 0 {
			st.DegradedRate = float64(st.Degraded) / float64(st.Total)
		}
		st.TopReasons = topReasons(reasons[name], maxReasons)
		snap.Stages = append(snap.Stages, *st)
	}
	return snap, nil
}

func topReasons(counts map[string]int, n int) []ReasonCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]ReasonCount, 0, len(counts))
	for reason, count := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
