// Package pipeline runs the enrichment stages for a lead: profile first,
// then reels and website concurrently, then the AI summary.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/cost"
	"github.com/sells-group/lead-enricher/internal/job"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/store"
	"github.com/sells-group/lead-enricher/pkg/anthropic"
	"github.com/sells-group/lead-enricher/pkg/storage"
)

// Pipeline orchestrates the enrichment stages.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	scrape   job.Client
	website  job.Client
	llm      anthropic.Client
	objects  storage.Client
	costCalc *cost.Calculator
}

// New creates a Pipeline. scrape serves the profile and reels stages,
// website the website stage. objects may be nil, which disables avatar
// rehosting.
func New(
	cfg *config.Config,
	st store.Store,
	scrape job.Client,
	website job.Client,
	llm anthropic.Client,
	objects storage.Client,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		scrape:   scrape,
		website:  website,
		llm:      llm,
		objects:  objects,
		costCalc: cost.NewCalculator(cfg.Rates()),
	}
}

// Options tunes a single invocation.
type Options struct {
	// ExternalURL overrides the profile's external link for the website stage.
	ExternalURL string `json:"external_url,omitempty"`
}

// StageOutcome is the result of running one stage on its own.
type StageOutcome struct {
	Report model.StageReport `json:"report"`
	Data   any               `json:"data"`
}

// EnsureLead returns the lead for username, creating it if needed.
func (p *Pipeline) EnsureLead(ctx context.Context, username string) (*model.Lead, error) {
	lead, err := p.store.EnsureLead(ctx, username)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: ensure lead")
	}
	return lead, nil
}

// Lead loads a lead by ID, falling back to a username lookup.
func (p *Pipeline) Lead(ctx context.Context, idOrUsername string) (*model.Lead, error) {
	lead, err := p.store.GetLead(ctx, idOrUsername)
	if err == nil || !eris.Is(err, store.ErrNotFound) {
		return lead, err
	}
	return p.store.GetLeadByUsername(ctx, idOrUsername)
}

// Enrich ensures a lead exists for username and runs every stage on it.
func (p *Pipeline) Enrich(ctx context.Context, username string, opts Options) (*model.RunReport, error) {
	lead, err := p.EnsureLead(ctx, username)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, lead.ID, opts)
}

// Run executes all stages for an existing lead. Stage failures are reported
// as degraded; only a missing lead or a failed lead read returns an error.
func (p *Pipeline) Run(ctx context.Context, leadID string, opts Options) (*model.RunReport, error) {
	started := time.Now()
	lead, err := p.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get lead")
	}
	log := zap.L().With(zap.String("lead_id", lead.ID), zap.String("username", lead.Username))
	log.Info("pipeline: starting enrichment")

	report := &model.RunReport{
		RunID:     uuid.New().String(),
		LeadID:    lead.ID,
		StartedAt: started.UTC(),
	}

	profileReport, profile, err := runScrapeStage(ctx, lead.ID, p.profileStage(lead.Username))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: profile stage")
	}
	report.Stages = append(report.Stages, profileReport)

	// Reels and website own disjoint field groups.
	var reelsReport, websiteReport model.StageReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, _, err := runScrapeStage(gctx, lead.ID, p.reelsStage(lead.Username))
		reelsReport = r
		return eris.Wrap(err, "pipeline: reels stage")
	})
	g.Go(func() error {
		r, _, err := runScrapeStage(gctx, lead.ID, p.websiteStage(websiteURL(opts.ExternalURL, profile.Profile)))
		websiteReport = r
		return eris.Wrap(err, "pipeline: website stage")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Stages = append(report.Stages, reelsReport, websiteReport)

	lead, err = p.store.GetLead(ctx, lead.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: reload lead")
	}
	summaryReport, _, err := p.runSummary(ctx, lead)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: summary stage")
	}
	report.Stages = append(report.Stages, summaryReport)

	if lead, err = p.store.GetLead(ctx, lead.ID); err != nil {
		return nil, eris.Wrap(err, "pipeline: reload lead")
	}
	report.Lead = lead
	report.Duration = time.Since(started).Milliseconds()
	p.saveRun(ctx, report)

	log.Info("pipeline: enrichment complete",
		zap.Int64("duration_ms", report.Duration),
		zap.Any("degraded", report.Degraded()),
	)
	return report, nil
}

// EnrichProfile ensures a lead exists for username and runs the profile stage.
func (p *Pipeline) EnrichProfile(ctx context.Context, username string) (*model.Lead, *StageOutcome, error) {
	lead, err := p.store.EnsureLead(ctx, username)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: ensure lead")
	}
	out, err := p.RunStage(ctx, lead.ID, model.StageProfile, Options{})
	return lead, out, err
}

// RunStage runs a single stage for an existing lead.
func (p *Pipeline) RunStage(ctx context.Context, leadID string, name model.StageName, opts Options) (*StageOutcome, error) {
	started := time.Now()
	lead, err := p.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get lead")
	}

	var out StageOutcome
	switch name {
	case model.StageProfile:
		r, v, err := runScrapeStage(ctx, lead.ID, p.profileStage(lead.Username))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: profile stage")
		}
		out = StageOutcome{Report: r, Data: v}
	case model.StageReels:
		r, v, err := runScrapeStage(ctx, lead.ID, p.reelsStage(lead.Username))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: reels stage")
		}
		out = StageOutcome{Report: r, Data: v}
	case model.StageWebsite:
		r, v, err := runScrapeStage(ctx, lead.ID, p.websiteStage(websiteURL(opts.ExternalURL, lead.Profile.Profile)))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: website stage")
		}
		out = StageOutcome{Report: r, Data: v}
	case model.StageSummary:
		r, v, err := p.runSummary(ctx, lead)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: summary stage")
		}
		out = StageOutcome{Report: r, Data: model.AnalysisGroup{Analysis: v, Complete: v != nil}}
	default:
		return nil, eris.Errorf("pipeline: unknown stage %q", name)
	}

	p.saveRun(ctx, &model.RunReport{
		RunID:     uuid.New().String(),
		LeadID:    lead.ID,
		Stages:    []model.StageReport{out.Report},
		StartedAt: started.UTC(),
		Duration:  time.Since(started).Milliseconds(),
	})
	return &out, nil
}

// saveRun records the report for audit. Failures are logged only.
func (p *Pipeline) saveRun(ctx context.Context, report *model.RunReport) {
	wctx, cancel := writeContext(ctx)
	defer cancel()
	if _, err := p.store.SaveRun(wctx, report); err != nil {
		zap.L().Warn("pipeline: save run failed",
			zap.String("lead_id", report.LeadID),
			zap.String("run_id", report.RunID),
			zap.Error(err),
		)
	}
}
