package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/extract"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/store"
	"github.com/sells-group/lead-enricher/pkg/anthropic"
)

// maxSiteChars bounds the website text sent to the model.
const maxSiteChars = 8000

const summarySystemPrompt = `You analyze small businesses that market themselves on Instagram.
Given the JSON payload about one account, respond with a single JSON object and nothing else:
{"summary": string, "prices": [string], "discounted_prices": [string], "niche": string|null, "other_contact": string|null}
- summary: two or three sentences on what the business offers and to whom.
- prices: every price you find, verbatim with currency (e.g. "45 €").
- discounted_prices: prices presented as promotions or reduced rates.
- niche: a short lowercase label for the market (e.g. "yoga studio").
- other_contact: an email, phone number or booking link that is not the Instagram account.
Use null or [] when the information is absent. Do not invent data.`

// runSummary produces the AI analysis. An existing non-empty analysis is
// returned as cached without calling the model or writing.
func (p *Pipeline) runSummary(ctx context.Context, lead *model.Lead) (model.StageReport, *model.Analysis, error) {
	start := time.Now()
	report := model.StageReport{Stage: model.StageSummary}

	cached, err := p.store.GetAnalysis(ctx, lead.ID)
	switch {
	case err != nil && errors.Is(err, store.ErrNotFound):
		return report, nil, err
	case err != nil:
		zap.L().Warn("summary: cache lookup failed", zap.String("lead_id", lead.ID), zap.Error(err))
	case !cached.Empty():
		report.Status = model.StageStatusCached
		report.Duration = time.Since(start).Milliseconds()
		zap.L().Info("stage: cached", zap.String("lead_id", lead.ID), zap.String("stage", string(model.StageSummary)))
		return report, cached, nil
	}

	result := p.summarize(ctx, lead, &report)
	g, err := persistResult(ctx, lead.ID, &report, result, model.NeutralAnalysis, p.store.UpdateAnalysis, start)
	return report, g.Analysis, err
}

func (p *Pipeline) summarize(ctx context.Context, lead *model.Lead, report *model.StageReport) model.StageResult[model.AnalysisGroup] {
	if !lead.Profile.HasProfile && !lead.Website.HasWebsite {
		return model.Degraded[model.AnalysisGroup]("nothing to summarize")
	}

	payload, err := json.Marshal(buildSummaryInput(lead))
	if err != nil {
		return model.Degraded[model.AnalysisGroup]("encode input: " + err.Error())
	}

	cfg := p.cfg.Anthropic
	temperature := cfg.Temperature
	resp, err := p.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		System:      summarySystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: string(payload)}},
		Temperature: &temperature,
	})
	if err != nil {
		return model.Degraded[model.AnalysisGroup]("llm: " + err.Error())
	}

	resp.Usage.LogCost(cfg.Model, lead.ID)
	report.CostUSD = p.costCalc.Claude(cfg.Model,
		resp.Usage.InputTokens, resp.Usage.OutputTokens,
		resp.Usage.CacheCreationInputTokens, resp.Usage.CacheReadInputTokens)
	report.Metadata = map[string]any{"model": cfg.Model, "stop_reason": resp.StopReason}

	return extract.Analysis(resp.Text())
}

type summaryInput struct {
	Username    string            `json:"username"`
	FullName    string            `json:"full_name,omitempty"`
	Biography   string            `json:"biography,omitempty"`
	ExternalURL string            `json:"external_url,omitempty"`
	Followers   int64             `json:"followers,omitempty"`
	Engagement  *float64          `json:"engagement_rate,omitempty"`
	Website     *summaryInputSite `json:"website,omitempty"`
}

type summaryInputSite struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
}

func buildSummaryInput(lead *model.Lead) summaryInput {
	in := summaryInput{Username: lead.Username, Engagement: lead.Reels.EngagementRate}
	if pr := lead.Profile.Profile; pr != nil {
		in.FullName = pr.FullName
		in.Biography = pr.Biography
		in.ExternalURL = pr.ExternalURL
		in.Followers = pr.FollowersCount
	}
	if pg := lead.Website.Primary; pg != nil {
		content := pg.Markdown
		if content == "" {
			content = pg.Text
		}
		in.Website = &summaryInputSite{
			URL:         pg.URL,
			Title:       pg.Title,
			Description: pg.Description,
			Content:     truncate(content, maxSiteChars),
		}
	}
	return in
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
