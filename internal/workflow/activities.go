package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/pipeline"
	"github.com/sells-group/lead-enricher/internal/store"
)

// StageRunner is the part of the pipeline the activities drive.
type StageRunner interface {
	EnsureLead(ctx context.Context, username string) (*model.Lead, error)
	RunStage(ctx context.Context, leadID string, name model.StageName, opts pipeline.Options) (*pipeline.StageOutcome, error)
}

// StageInput selects one stage of one lead.
type StageInput struct {
	LeadID  string           `json:"lead_id"`
	Stage   model.StageName  `json:"stage"`
	Options pipeline.Options `json:"options"`
}

// Activities wraps a StageRunner as Temporal activities.
type Activities struct {
	runner StageRunner
}

// NewActivities creates the activity set.
func NewActivities(runner StageRunner) *Activities {
	return &Activities{runner: runner}
}

// EnsureLead returns the ID of the lead for username, creating it if needed.
func (a *Activities) EnsureLead(ctx context.Context, username string) (string, error) {
	if model.NormalizeUsername(username) == "" {
		return "", temporal.NewNonRetryableApplicationError("username is required", "InvalidInput", nil)
	}
	lead, err := a.runner.EnsureLead(ctx, username)
	if err != nil {
		return "", err
	}
	return lead.ID, nil
}

// RunStage runs one stage and returns its report. Degraded stages succeed;
// a missing lead fails without retry.
func (a *Activities) RunStage(ctx context.Context, in StageInput) (model.StageReport, error) {
	if !in.Stage.Valid() {
		return model.StageReport{}, temporal.NewNonRetryableApplicationError("unknown stage "+string(in.Stage), "InvalidInput", nil)
	}
	out, err := a.runner.RunStage(ctx, in.LeadID, in.Stage, in.Options)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return model.StageReport{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeLeadNotFound, err)
		}
		zap.L().Error("workflow: stage failed",
			zap.String("lead_id", in.LeadID),
			zap.String("stage", string(in.Stage)),
			zap.Error(err),
		)
		return model.StageReport{}, err
	}
	return out.Report, nil
}
