package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-enricher/internal/monitoring"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Summarize stage outcomes and cost over recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		hours, _ := cmd.Flags().GetInt("hours")
		alert, _ := cmd.Flags().GetBool("alert")
		asJSON, _ := cmd.Flags().GetBool("json")
		if hours <= 0 {
			hours = cfg.Monitoring.LookbackWindowHours
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return err
		}

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		if alert {
			alerter.SendAlerts(ctx, alerts)
		}

		if asJSON {
			return writeJSONOut(os.Stdout, struct {
				Snapshot *monitoring.Snapshot `json:"snapshot"`
				Alerts   []monitoring.Alert   `json:"alerts"`
			}{snap, alerts})
		}
		renderSnapshot(os.Stdout, snap)
		for _, a := range alerts {
			fmt.Fprintf(os.Stdout, "[%s] %s\n", a.Severity, a.Message)
		}
		return nil
	},
}

func renderSnapshot(w io.Writer, snap *monitoring.Snapshot) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%d runs in the last %dh", snap.Runs, snap.LookbackHours))
	t.AppendHeader(table.Row{"Stage", "Total", "OK", "Cached", "Degraded", "Rate", "Cost", "Top Reason"})
	for _, st := range snap.Stages {
		reason := ""
		if len(st.TopReasons) > 0 {
			reason = fmt.Sprintf("%s (%d)", st.TopReasons[0].Reason, st.TopReasons[0].Count)
		}
		t.AppendRow(table.Row{
			st.Stage, st.Total, st.OK, st.Cached, st.Degraded,
			fmt.Sprintf("%.1f%%", st.DegradedRate*100),
			fmt.Sprintf("$%.4f", st.CostUSD),
			reason,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", fmt.Sprintf("$%.4f", snap.CostUSD), ""})
	t.Render()
}

func init() {
	monitorCmd.Flags().Int("hours", 0, "lookback window in hours (default from config)")
	monitorCmd.Flags().Bool("alert", false, "send triggered alerts to the configured webhook")
	monitorCmd.Flags().Bool("json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(monitorCmd)
}
