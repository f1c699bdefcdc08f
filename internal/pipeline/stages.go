package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/extract"
	"github.com/sells-group/lead-enricher/internal/job"
	"github.com/sells-group/lead-enricher/internal/model"
)

func (p *Pipeline) profileStage(username string) scrapeStage[model.ProfileGroup] {
	sc := p.cfg.Stages.Profile
	return scrapeStage[model.ProfileGroup]{
		name:   model.StageProfile,
		client: p.scrape,
		spec: job.Spec{
			Target: sc.Actor,
			Input:  map[string]any{"usernames": []string{username}},
			Limit:  sc.MaxResults,
		},
		budget:  sc.Poll,
		extract: extract.Profile,
		neutral: model.NeutralProfile,
		persist: p.store.UpdateProfile,
		enrich:  p.rehostAvatar,
		cost:    p.jobCost(p.scrape, sc.Actor),
	}
}

func (p *Pipeline) reelsStage(username string) scrapeStage[model.ReelsGroup] {
	sc := p.cfg.Stages.Reels
	limit := sc.Limit
	return scrapeStage[model.ReelsGroup]{
		name:   model.StageReels,
		client: p.scrape,
		spec: job.Spec{
			Target: sc.Actor,
			Input: map[string]any{
				"username":     []string{username},
				"resultsLimit": sc.MaxResults,
			},
			Limit: sc.MaxResults,
		},
		budget: sc.Poll,
		extract: func(recs []job.Record) model.StageResult[model.ReelsGroup] {
			return extract.Reels(recs, limit)
		},
		neutral: model.NeutralReels,
		persist: p.store.UpdateReels,
		cost:    p.jobCost(p.scrape, sc.Actor),
	}
}

func (p *Pipeline) websiteStage(siteURL string) scrapeStage[model.WebsiteGroup] {
	sc := p.cfg.Stages.Website
	st := scrapeStage[model.WebsiteGroup]{
		name:   model.StageWebsite,
		client: p.website,
		spec: job.Spec{
			Target: sc.Actor,
			Input: map[string]any{
				"startUrls":     []map[string]any{{"url": siteURL}},
				"maxCrawlDepth": sc.MaxDepth,
				"maxCrawlPages": sc.MaxPages,
				"saveMarkdown":  true,
			},
			Limit: sc.MaxResults,
		},
		budget:  sc.Poll,
		extract: extract.Website,
		neutral: model.NeutralWebsite,
		persist: p.store.UpdateWebsite,
		cost:    p.jobCost(p.website, sc.Actor),
	}
	if siteURL == "" {
		st.skip = "no external url"
	}
	return st
}

// websiteURL picks the crawl entry point: the explicit override, else the
// profile's external link.
func websiteURL(override string, profile *model.Profile) string {
	u := strings.TrimSpace(override)
	if u == "" && profile != nil {
		u = strings.TrimSpace(profile.ExternalURL)
	}
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

// rehostAvatar copies the avatar into object storage. Failures keep the
// provider URL.
func (p *Pipeline) rehostAvatar(ctx context.Context, leadID string, g *model.ProfileGroup) {
	if p.objects == nil || !p.cfg.Storage.RehostAvatars || g.Profile == nil || g.Profile.AvatarURL == "" {
		return
	}
	u, err := p.objects.Rehost(ctx, g.Profile.AvatarURL, p.cfg.Storage.Bucket, "leads/"+leadID)
	if err != nil {
		zap.L().Warn("pipeline: avatar rehost failed",
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
		return
	}
	g.Profile.AvatarURL = u
}

func (p *Pipeline) jobCost(c job.Client, actor string) func(int) float64 {
	if c != nil && c.Provider() == job.ProviderFirecrawl {
		return p.costCalc.FirecrawlPages
	}
	return func(n int) float64 {
		return p.costCalc.ApifyResults(actor, n)
	}
}
