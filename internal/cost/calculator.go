package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Apify     ApifyRate            `yaml:"apify" mapstructure:"apify"`
	Firecrawl FirecrawlRate        `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// ApifyRate holds pay-per-result actor pricing, per 1000 results.
// Actors missing from PerThousand fall back to Default.
type ApifyRate struct {
	Default     float64            `yaml:"default" mapstructure:"default"`
	PerThousand map[string]float64 `yaml:"per_thousand" mapstructure:"per_thousand"`
}

// FirecrawlRate holds Firecrawl pricing.
type FirecrawlRate struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// ApifyResults computes the cost of results produced by an actor run.
func (c *Calculator) ApifyResults(actor string, results int) float64 {
	if results <= 0 {
		return 0
	}
	price, ok := c.rates.Apify.PerThousand[actor]
	if !ok {
		price = c.rates.Apify.Default
	}
	return float64(results) / 1000 * price
}

// FirecrawlPages amortizes the monthly plan over the crawled pages, one
// credit per page.
func (c *Calculator) FirecrawlPages(pages int) float64 {
	if pages <= 0 || c.rates.Firecrawl.CreditsIncluded <= 0 {
		return 0
	}
	return float64(pages) * c.rates.Firecrawl.PlanMonthly / c.rates.Firecrawl.CreditsIncluded
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Apify: ApifyRate{
			Default: 2.30,
			PerThousand: map[string]float64{
				"apify/instagram-profile-scraper": 2.60,
				"apify/instagram-reel-scraper":    2.60,
				"apify/website-content-crawler":   5.00,
			},
		},
		Firecrawl: FirecrawlRate{PlanMonthly: 19.00, CreditsIncluded: 3000},
	}
}
