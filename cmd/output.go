package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sells-group/lead-enricher/internal/model"
)

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	return tw
}

func writeJSONOut(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderStages prints one row per stage report.
func renderStages(w io.Writer, stages []model.StageReport) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Stage", "Status", "Job", "State", "Records", "Duration", "Cost", "Reason"})
	var total float64
	for _, s := range stages {
		total += s.CostUSD
		tw.AppendRow(table.Row{
			s.Stage, s.Status, s.JobID, s.JobState, s.Records,
			(time.Duration(s.Duration) * time.Millisecond).String(),
			fmt.Sprintf("$%.4f", s.CostUSD),
			s.Reason,
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "Total", fmt.Sprintf("$%.4f", total), ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, WidthMax: 60},
	})
	tw.Render()
}

// renderLead prints the merged lead as a field/value table.
func renderLead(w io.Writer, lead *model.Lead) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRow(table.Row{"id", lead.ID})
	tw.AppendRow(table.Row{"username", lead.Username})
	tw.AppendRow(table.Row{"updated_at", lead.UpdatedAt.Format(time.RFC3339)})
	tw.AppendSeparator()

	tw.AppendRow(table.Row{"has_profile", lead.Profile.HasProfile})
	if p := lead.Profile.Profile; p != nil {
		tw.AppendRow(table.Row{"full_name", p.FullName})
		tw.AppendRow(table.Row{"followers", p.FollowersCount})
		tw.AppendRow(table.Row{"external_url", p.ExternalURL})
		tw.AppendRow(table.Row{"avatar_url", p.AvatarURL})
	}
	tw.AppendSeparator()

	tw.AppendRow(table.Row{"has_reels", lead.Reels.HasReels})
	tw.AppendRow(table.Row{"reels", len(lead.Reels.Reels)})
	er := "-"
	if lead.Reels.EngagementRate != nil {
		er = fmt.Sprintf("%.2f%%", *lead.Reels.EngagementRate)
	}
	tw.AppendRow(table.Row{"er_avg", er})
	tw.AppendSeparator()

	tw.AppendRow(table.Row{"has_website", lead.Website.HasWebsite})
	tw.AppendRow(table.Row{"pages", len(lead.Website.Pages)})
	if pg := lead.Website.Primary; pg != nil {
		tw.AppendRow(table.Row{"site_title", pg.Title})
		tw.AppendRow(table.Row{"site_language", pg.Language})
	}
	tw.AppendSeparator()

	tw.AppendRow(table.Row{"ai_analysis_complete", lead.Analysis.Complete})
	if a := lead.Analysis.Analysis; a != nil {
		tw.AppendRow(table.Row{"summary", a.Summary})
		tw.AppendRow(table.Row{"prices", strings.Join(a.Prices, ", ")})
		tw.AppendRow(table.Row{"discounted_prices", strings.Join(a.DiscountedPrices, ", ")})
		tw.AppendRow(table.Row{"niche", deref(a.Niche)})
		tw.AppendRow(table.Row{"other_contact", deref(a.OtherContact)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	tw.Render()
}

// renderRuns prints the run history of a lead.
func renderRuns(w io.Writer, runs []model.Run) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Run", "Created", "Stages", "Degraded", "Duration"})
	for _, r := range runs {
		var stages, degraded []string
		var dur int64
		if r.Report != nil {
			for _, s := range r.Report.Stages {
				stages = append(stages, string(s.Stage))
			}
			for _, s := range r.Report.Degraded() {
				degraded = append(degraded, string(s))
			}
			dur = r.Report.Duration
		}
		tw.AppendRow(table.Row{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			strings.Join(stages, ","),
			strings.Join(degraded, ","),
			(time.Duration(dur) * time.Millisecond).String(),
		})
	}
	tw.Render()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
