package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/pipeline"
	"github.com/sells-group/lead-enricher/internal/server"
	"github.com/sells-group/lead-enricher/internal/workflow"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker that executes enrichment workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, config.ModeWorker)
		if err != nil {
			return err
		}
		defer env.Close()

		tc, err := workflow.Dial(cfg.Temporal)
		if err != nil {
			return err
		}
		defer tc.Close()

		w := workflow.NewWorker(tc, cfg.Temporal.TaskQueue, env.Pipeline)
		zap.L().Info("starting temporal worker",
			zap.String("host_port", cfg.Temporal.HostPort),
			zap.String("namespace", cfg.Temporal.Namespace),
			zap.String("task_queue", cfg.Temporal.TaskQueue),
		)

		interrupt := make(chan any)
		go func() {
			<-ctx.Done()
			close(interrupt)
		}()
		if err := w.Run(interrupt); err != nil {
			return eris.Wrap(err, "temporal worker")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

var _ server.Starter = (*temporalStarter)(nil)

// temporalStarter launches enrichment workflows for the HTTP API.
type temporalStarter struct {
	client    client.Client
	taskQueue string
}

func (s *temporalStarter) StartEnrichment(ctx context.Context, username string, opts pipeline.Options) (string, string, error) {
	run, err := workflow.Start(ctx, s.client, s.taskQueue, workflow.EnrichInput{Username: username, Options: opts})
	if err != nil {
		return "", "", err
	}
	return run.GetID(), run.GetRunID(), nil
}
