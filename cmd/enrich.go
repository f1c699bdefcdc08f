package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/pipeline"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <username>",
	Short: "Enrich one Instagram lead",
	Long:  "Runs every stage for the lead (creating it if needed), or only the stage named by --stage.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stage, _ := cmd.Flags().GetString("stage")
		externalURL, _ := cmd.Flags().GetString("external-url")
		asJSON, _ := cmd.Flags().GetBool("json")

		name := model.StageName(stage)
		if stage != "" && !name.Valid() {
			return eris.Errorf("unknown stage %q (want profile, reels, website or summary)", stage)
		}

		env, err := initPipeline(ctx, config.ModeEnrich)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := pipeline.Options{ExternalURL: externalURL}
		if stage == "" {
			report, err := env.Pipeline.Enrich(ctx, args[0], opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSONOut(os.Stdout, report)
			}
			renderStages(os.Stdout, report.Stages)
			renderLead(os.Stdout, report.Lead)
			return nil
		}

		lead, err := env.Pipeline.EnsureLead(ctx, args[0])
		if err != nil {
			return err
		}
		out, err := env.Pipeline.RunStage(ctx, lead.ID, name, opts)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSONOut(os.Stdout, out)
		}
		renderStages(os.Stdout, []model.StageReport{out.Report})
		return nil
	},
}

func init() {
	enrichCmd.Flags().String("stage", "", "run a single stage: profile, reels, website or summary")
	enrichCmd.Flags().String("external-url", "", "website to crawl instead of the profile's link")
	enrichCmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(enrichCmd)
}
