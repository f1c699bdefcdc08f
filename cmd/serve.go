package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/monitoring"
	"github.com/sells-group/lead-enricher/internal/server"
	"github.com/sells-group/lead-enricher/internal/workflow"
)

var (
	servePort     int
	serveTemporal bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initPipeline(ctx, config.ModeServe)
		if err != nil {
			return err
		}
		defer env.Close()

		var starter server.Starter
		if serveTemporal {
			tc, err := workflow.Dial(cfg.Temporal)
			if err != nil {
				return err
			}
			defer tc.Close()
			starter = &temporalStarter{client: tc, taskQueue: cfg.Temporal.TaskQueue}
			zap.L().Info("async enrichment enabled", zap.String("task_queue", cfg.Temporal.TaskQueue))
		}

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		return server.New(cfg.Server, env.Pipeline, starter).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveTemporal, "temporal", false, "accept async requests by starting Temporal workflows")
	rootCmd.AddCommand(serveCmd)
}
