package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/model"
)

// Dial connects to the Temporal frontend.
func Dial(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: dial temporal %s", cfg.HostPort)
	}
	return c, nil
}

// NewWorker registers the enrichment workflow and activities on taskQueue.
func NewWorker(c client.Client, taskQueue string, runner StageRunner) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(EnrichLead, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivity(NewActivities(runner))
	return w
}

// Start launches an enrichment workflow without waiting for it. The
// workflow ID is derived from the lead so concurrent requests for the same
// lead join one execution.
func Start(ctx context.Context, c client.Client, taskQueue string, in EnrichInput) (client.WorkflowRun, error) {
	key := in.LeadID
	if key == "" {
		key = model.NormalizeUsername(in.Username)
	}
	if key == "" {
		return nil, eris.New("workflow: lead id or username is required")
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "enrich-" + key,
		TaskQueue: taskQueue,
	}, WorkflowName, in)
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: start enrichment for %s", key)
	}
	zap.L().Info("workflow: started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
	)
	return run, nil
}
