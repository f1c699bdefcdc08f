// Package workflow runs lead enrichment as a durable Temporal workflow. Each
// stage is an activity, so a worker restart resumes after the last completed
// stage instead of resubmitting every scrape job.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/pipeline"
)

// WorkflowName is the registered name of EnrichLead.
const WorkflowName = "EnrichLead"

// errTypeLeadNotFound marks activity failures that must not be retried.
const errTypeLeadNotFound = "LeadNotFound"

// EnrichInput starts an enrichment. Username is used when LeadID is empty.
type EnrichInput struct {
	LeadID   string           `json:"lead_id,omitempty"`
	Username string           `json:"username,omitempty"`
	Options  pipeline.Options `json:"options"`
	// StageTimeout bounds one stage attempt. Zero means DefaultStageTimeout.
	StageTimeout time.Duration `json:"stage_timeout,omitempty"`
}

// DefaultStageTimeout covers the longest default poll budget with headroom.
const DefaultStageTimeout = 15 * time.Minute

func activityOptions(timeout time.Duration) workflow.ActivityOptions {
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errTypeLeadNotFound},
		},
	}
}

// EnrichLead runs profile, then reels and website in parallel, then the
// summary. Degraded stages do not fail the workflow.
func EnrichLead(ctx workflow.Context, in EnrichInput) (*model.RunReport, error) {
	log := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, activityOptions(in.StageTimeout))

	var a *Activities
	leadID := in.LeadID
	if leadID == "" {
		if err := workflow.ExecuteActivity(ctx, a.EnsureLead, in.Username).Get(ctx, &leadID); err != nil {
			return nil, err
		}
	}

	report := &model.RunReport{
		RunID:     workflow.GetInfo(ctx).WorkflowExecution.RunID,
		LeadID:    leadID,
		StartedAt: workflow.Now(ctx).UTC(),
	}
	stage := func(name model.StageName) workflow.Future {
		return workflow.ExecuteActivity(ctx, a.RunStage, StageInput{LeadID: leadID, Stage: name, Options: in.Options})
	}

	var profile model.StageReport
	if err := stage(model.StageProfile).Get(ctx, &profile); err != nil {
		return nil, err
	}
	report.Stages = append(report.Stages, profile)

	reelsF := stage(model.StageReels)
	websiteF := stage(model.StageWebsite)
	var reels, website model.StageReport
	reelsErr := reelsF.Get(ctx, &reels)
	websiteErr := websiteF.Get(ctx, &website)
	if reelsErr != nil {
		return nil, reelsErr
	}
	if websiteErr != nil {
		return nil, websiteErr
	}
	report.Stages = append(report.Stages, reels, website)

	var summary model.StageReport
	if err := stage(model.StageSummary).Get(ctx, &summary); err != nil {
		return nil, err
	}
	report.Stages = append(report.Stages, summary)

	report.Duration = workflow.Now(ctx).Sub(report.StartedAt).Milliseconds()
	log.Info("enrichment complete", "lead_id", leadID, "degraded", report.Degraded())
	return report, nil
}
