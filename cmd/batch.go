package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-enricher/internal/batch"
	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/pkg/notion"
	"github.com/sells-group/lead-enricher/pkg/salesforce"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich every queued lead of the Notion lead database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		limit, _ := cmd.Flags().GetInt("limit")
		if cmd.Flags().Changed("salesforce") {
			cfg.Batch.PushSalesforce, _ = cmd.Flags().GetBool("salesforce")
		}

		env, err := initPipeline(ctx, config.ModeBatch)
		if err != nil {
			return err
		}
		defer env.Close()

		var pusher batch.Pusher
		if cfg.Batch.PushSalesforce {
			sf, err := initSalesforce(cfg.Salesforce)
			if err != nil {
				return err
			}
			pusher = batch.NewSalesforcePusher(sf, cfg.Salesforce.SObject, cfg.Salesforce.HandleField)
		}

		proc := batch.NewProcessor(notionClient(cfg.Notion), env.Pipeline, pusher)
		sum, err := proc.Run(ctx, cfg.Notion.LeadDB, batch.Options{
			Limit:       limit,
			Concurrency: cfg.Batch.MaxConcurrentLeads,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d leads: %d enriched, %d partial, %d failed, %d pushed\n",
			sum.Total, sum.Enriched, sum.Partial, sum.Failed, sum.Pushed)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Queue Instagram handles from a CSV in the Notion lead database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Notion.Token == "" {
			return eris.New("notion.token is required (LEADS_NOTION_TOKEN)")
		}
		if cfg.Notion.LeadDB == "" {
			return eris.New("notion.lead_db is required (LEADS_NOTION_LEAD_DB)")
		}

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer f.Close() //nolint:errcheck

		handles, err := batch.ReadHandles(f)
		if err != nil {
			return err
		}
		n, err := batch.Import(cmd.Context(), notionClient(cfg.Notion), cfg.Notion.LeadDB, handles)
		fmt.Fprintf(cmd.OutOrStdout(), "Queued %d of %d handles\n", n, len(handles))
		return err
	},
}

func notionClient(c config.NotionConfig) notion.Client {
	return notion.NewClient(c.Token, notion.WithRateLimit(c.RateLimit))
}

func initSalesforce(c config.SalesforceConfig) (salesforce.Client, error) {
	if !c.Enabled() {
		return nil, eris.New("salesforce is not configured (LEADS_SALESFORCE_CLIENT_ID, _USERNAME, _KEY_PATH)")
	}
	pem, err := os.ReadFile(c.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}
	return salesforce.Dial(salesforce.Creds{
		LoginURL: c.LoginURL,
		Username: c.Username,
		ClientID: c.ClientID,
		KeyPEM:   string(pem),
	}, salesforce.WithRateLimit(c.RateLimit))
}

func init() {
	batchCmd.Flags().Int("limit", 100, "max number of leads to process")
	batchCmd.Flags().Bool("salesforce", false, "push enriched leads to Salesforce")
	rootCmd.AddCommand(batchCmd, importCmd)
}
