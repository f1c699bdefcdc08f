package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-enricher/internal/batch"
	"github.com/sells-group/lead-enricher/internal/export"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/store"
)

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Inspect stored leads",
}

var leadShowCmd = &cobra.Command{
	Use:   "show <id|username>",
	Short: "Show a lead's merged record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := findLead(ctx, st, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSONOut(os.Stdout, lead)
		}
		renderLead(os.Stdout, lead)
		return nil
	},
}

var leadRunsCmd = &cobra.Command{
	Use:   "runs <id|username>",
	Short: "List a lead's enrichment runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := findLead(ctx, st, args[0])
		if err != nil {
			return err
		}
		runs, err := st.ListRuns(ctx, lead.ID, limit)
		if err != nil {
			return eris.Wrap(err, "lead runs")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		renderRuns(os.Stdout, runs)
		return nil
	},
}

var leadExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored leads as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")
		formatFlag, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")

		format := export.FormatFromPath(out)
		if formatFlag != "" {
			f, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			format = f
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "lead export")
		}

		if out == "" || out == "-" {
			return export.Write(cmd.OutOrStdout(), format, leads)
		}
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		if err := export.Write(f, format, leads); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "close %s", out)
		}
		fmt.Fprintf(os.Stderr, "Exported %d leads to %s\n", len(leads), out)
		return nil
	},
}

var leadPushCmd = &cobra.Command{
	Use:   "push <id|username>",
	Short: "Create or update the lead's Salesforce record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sf, err := initSalesforce(cfg.Salesforce)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := findLead(ctx, st, args[0])
		if err != nil {
			return err
		}
		id, err := batch.NewSalesforcePusher(sf, cfg.Salesforce.SObject, cfg.Salesforce.HandleField).Push(ctx, lead)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Salesforce.SObject, id)
		return nil
	},
}

// findLead resolves an ID or a username.
func findLead(ctx context.Context, st store.Store, key string) (*model.Lead, error) {
	lead, err := st.GetLead(ctx, key)
	if err == nil {
		return lead, nil
	}
	if !eris.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return st.GetLeadByUsername(ctx, key)
}

func init() {
	leadShowCmd.Flags().Bool("json", false, "print the lead as JSON")
	leadRunsCmd.Flags().Int("limit", 20, "maximum number of runs")
	leadExportCmd.Flags().StringP("out", "o", "-", "output file; .xlsx selects XLSX")
	leadExportCmd.Flags().String("format", "", "csv or xlsx (default from the file extension)")
	leadExportCmd.Flags().Int("limit", 0, "maximum number of leads (0 for the store default)")
	leadCmd.AddCommand(leadShowCmd, leadRunsCmd, leadExportCmd, leadPushCmd)
	rootCmd.AddCommand(leadCmd)
}
