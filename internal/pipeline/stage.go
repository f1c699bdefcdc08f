package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/job"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/store"
)

// scrapeStage describes one submit/poll/fetch/extract/persist stage. Stages
// differ only in this data.
type scrapeStage[T any] struct {
	name    model.StageName
	client  job.Client
	spec    job.Spec
	budget  job.Budget
	extract func([]job.Record) model.StageResult[T]
	neutral func() T
	persist func(ctx context.Context, leadID string, v T) error
	// skip, when set, degrades the stage with this reason without a job.
	skip string
	// enrich runs after a successful extract, before persist. Optional.
	enrich func(ctx context.Context, leadID string, v *T)
	// cost prices the fetched records. Optional.
	cost func(records int) float64
}

// runScrapeStage runs st for a lead. The stage's field group is written
// exactly once, with the extracted value or the neutral one. The only error
// returned is store.ErrNotFound from that write.
func runScrapeStage[T any](ctx context.Context, leadID string, st scrapeStage[T]) (model.StageReport, T, error) {
	start := time.Now()
	report := model.StageReport{Stage: st.name}

	var result model.StageResult[T]
	if st.skip != "" {
		result = model.Degraded[T](st.skip)
	} else {
		result = executeJob(ctx, st, &report)
	}
	if !result.Degraded && st.enrich != nil {
		st.enrich(ctx, leadID, &result.Value)
	}

	value, err := persistResult(ctx, leadID, &report, result, st.neutral, st.persist, start)
	return report, value, err
}

// executeJob drives the job through submit, poll and fetch, then extracts.
// Every failure is expressed as a degraded result.
func executeJob[T any](ctx context.Context, st scrapeStage[T], report *model.StageReport) model.StageResult[T] {
	h, err := st.client.Submit(ctx, st.spec)
	if err != nil {
		return model.Degraded[T]("submit: " + err.Error())
	}
	report.JobID = h.JobID

	status := job.Poll(ctx, st.client, h, st.budget)
	report.JobState = string(status.State)
	if status.State != job.StateSucceeded {
		reason := fmt.Sprintf("job %s", status.State)
		if status.Message != "" {
			reason += ": " + status.Message
		}
		return model.Degraded[T](reason)
	}

	recs, err := st.client.Fetch(ctx, h.WithDataset(status.DatasetRef), st.spec.Limit)
	if err != nil {
		return model.Degraded[T]("fetch: " + err.Error())
	}
	report.Records = len(recs)
	if st.cost != nil {
		report.CostUSD = st.cost(len(recs))
	}
	if len(recs) == 0 {
		return model.Degraded[T]("empty result")
	}
	return st.extract(recs)
}

// persistTimeout bounds a stage write once the invocation's own context
// has been cancelled.
const persistTimeout = 10 * time.Second

// writeContext detaches ctx from cancellation so a cancelled or timed-out
// invocation still records its neutral group.
func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// persistResult writes the result (or the neutral value when degraded) and
// completes the report. A persist failure other than a missing lead degrades
// the report; a missing lead is returned.
func persistResult[T any](
	ctx context.Context,
	leadID string,
	report *model.StageReport,
	result model.StageResult[T],
	neutral func() T,
	persist func(context.Context, string, T) error,
	start time.Time,
) (T, error) {
	log := zap.L().With(zap.String("lead_id", leadID), zap.String("stage", string(report.Stage)))

	value := result.Value
	if result.Degraded {
		value = neutral()
	}

	wctx, cancel := writeContext(ctx)
	defer cancel()
	err := persist(wctx, leadID, value)
	report.Duration = time.Since(start).Milliseconds()
	switch {
	case err != nil && errors.Is(err, store.ErrNotFound):
		log.Error("stage: lead missing", zap.Error(err))
		return value, err
	case err != nil:
		report.Status = model.StageStatusDegraded
		report.Reason = "persist: " + err.Error()
		log.Error("stage: persist failed", zap.Error(err))
		return neutral(), nil
	case result.Degraded:
		report.Status = model.StageStatusDegraded
		report.Reason = result.Reason
		log.Warn("stage: degraded",
			zap.String("reason", result.Reason),
			zap.String("job_id", report.JobID),
			zap.String("state", report.JobState),
			zap.Int64("duration_ms", report.Duration),
		)
	default:
		report.Status = model.StageStatusOK
		log.Info("stage: complete",
			zap.String("job_id", report.JobID),
			zap.Int("records", report.Records),
			zap.Int64("duration_ms", report.Duration),
		)
	}
	return value, nil
}
