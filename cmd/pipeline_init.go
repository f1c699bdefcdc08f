package main

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/job"
	"github.com/sells-group/lead-enricher/internal/pipeline"
	"github.com/sells-group/lead-enricher/internal/store"
	anthropicpkg "github.com/sells-group/lead-enricher/pkg/anthropic"
	"github.com/sells-group/lead-enricher/pkg/apify"
	"github.com/sells-group/lead-enricher/pkg/firecrawl"
	"github.com/sells-group/lead-enricher/pkg/storage"
)

// pipelineEnv holds the store and the pipeline built on it.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, opens the store and builds the
// pipeline with every provider client. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	scrape, website := jobClients(cfg)
	llm := anthropicClient(cfg.Anthropic)

	var objects storage.Client
	if cfg.Storage.URL != "" && cfg.Storage.Key != "" {
		objects = storage.NewClient(cfg.Storage.URL, cfg.Storage.Key)
	} else if cfg.Storage.RehostAvatars {
		zap.L().Warn("storage not configured, avatar rehosting disabled")
	}

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, scrape, website, llm, objects),
	}, nil
}

// jobClients builds the client for profile/reels and the one for the
// website stage. Both share one resilience policy per provider.
func jobClients(c *config.Config) (scrape, website job.Client) {
	policy := c.Resilience.Policy()

	apifyOpts := []apify.Option{apify.WithRateLimit(c.Apify.RateLimit)}
	if c.Apify.BaseURL != "" {
		apifyOpts = append(apifyOpts, apify.WithBaseURL(c.Apify.BaseURL))
	}
	scrape = job.NewApifyClient(apify.NewClient(c.Apify.Token, apifyOpts...), policy)

	website = scrape
	if c.Stages.Website.Provider == config.WebsiteProviderFirecrawl {
		var fcOpts []firecrawl.Option
		if c.Firecrawl.BaseURL != "" {
			fcOpts = append(fcOpts, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
		}
		website = job.NewFirecrawlClient(firecrawl.NewClient(c.Firecrawl.Key, fcOpts...), policy)
	}
	zap.L().Debug("job clients ready",
		zap.String("scrape", scrape.Provider()),
		zap.String("website", website.Provider()),
	)
	return scrape, website
}

func anthropicClient(c config.AnthropicConfig) anthropicpkg.Client {
	var opts []option.RequestOption
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	return anthropicpkg.NewClient(c.Key, opts...)
}
