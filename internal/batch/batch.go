// Package batch drives enrichment from a Notion lead queue and pushes
// results back to Notion and, optionally, Salesforce.
package batch

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/pipeline"
	"github.com/sells-group/lead-enricher/pkg/notion"
)

// Property names of the Notion lead queue database.
const (
	PropName         = "Name"
	PropInstagram    = "Instagram"
	PropWebsite      = "Website"
	PropStatus       = "Status"
	PropLeadID       = "Lead ID"
	PropFollowers    = "Followers"
	PropEngagement   = "Engagement Rate"
	PropNiche        = "Niche"
	PropSummary      = "Summary"
	PropDegraded     = "Degraded Stages"
	PropError        = "Error"
	PropLastEnriched = "Last Enriched"
)

// Queue statuses.
const (
	StatusQueued   = "Queued"
	StatusEnriched = "Enriched"
	StatusPartial  = "Partial"
	StatusFailed   = "Failed"
)

const maxErrorLen = 200

// Enricher runs the full pipeline for a username.
type Enricher interface {
	Enrich(ctx context.Context, username string, opts pipeline.Options) (*model.RunReport, error)
}

// Pusher mirrors an enriched lead into a CRM and returns the record ID.
type Pusher interface {
	Push(ctx context.Context, lead *model.Lead) (string, error)
}

// Item is one queued Notion row.
type Item struct {
	PageID      string
	Username    string
	ExternalURL string
}

// ItemFromPage reads the handle from the Instagram property, falling back
// to the page title.
func ItemFromPage(page notionapi.Page) Item {
	handle := ParseHandle(notion.PlainText(page, PropInstagram))
	if handle == "" {
		handle = ParseHandle(notion.PlainText(page, PropName))
	}
	return Item{
		PageID:      string(page.ID),
		Username:    handle,
		ExternalURL: notion.PlainText(page, PropWebsite),
	}
}

// ParseHandle accepts "@handle", "handle" or an instagram.com profile URL.
func ParseHandle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "instagram.com") {
		if !strings.Contains(s, "://") {
			s = "https://" + s
		}
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 0 {
			return ""
		}
		s = parts[0]
	}
	return model.NormalizeUsername(s)
}

// Options bounds one batch.
type Options struct {
	Limit       int
	Concurrency int
}

// Summary counts batch outcomes.
type Summary struct {
	Total    int `json:"total"`
	Enriched int `json:"enriched"`
	Partial  int `json:"partial"`
	Failed   int `json:"failed"`
	Pushed   int `json:"pushed"`
}

// Processor enriches queued Notion rows.
type Processor struct {
	notion   notion.Client
	enricher Enricher
	pusher   Pusher
	now      func() time.Time
}

// NewProcessor builds a Processor. pusher may be nil.
func NewProcessor(nc notion.Client, enricher Enricher, pusher Pusher) *Processor {
	return &Processor{
		notion:   nc,
		enricher: enricher,
		pusher:   pusher,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run pulls every Queued row of dbID and processes it.
func (p *Processor) Run(ctx context.Context, dbID string, opts Options) (Summary, error) {
	pages, err := notion.QueryByStatus(ctx, p.notion, dbID, PropStatus, StatusQueued)
	if err != nil {
		return Summary{}, eris.Wrap(err, "batch: query queue")
	}
	return p.Process(ctx, pages, opts)
}

// Process enriches pages concurrently. A failed lead never aborts the batch.
func (p *Processor) Process(ctx context.Context, pages []notionapi.Page, opts Options) (Summary, error) {
	if opts.Limit > 0 && len(pages) > opts.Limit {
		pages = pages[:opts.Limit]
	}
	if len(pages) == 0 {
		zap.L().Info("batch: no queued leads found")
		return Summary{}, nil
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("batch: processing",
		zap.Int("leads", len(pages)),
		zap.Int("concurrency", concurrency),
	)

	var enriched, partial, failed, pushed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, page := range pages {
		item := ItemFromPage(page)
		g.Go(func() error {
			log := zap.L().With(zap.String("page_id", item.PageID), zap.String("username", item.Username))

			if item.Username == "" {
				failed.Add(1)
				p.markFailed(gctx, log, item.PageID, eris.New("no instagram handle"))
				return nil
			}

			report, err := p.enricher.Enrich(gctx, item.Username, pipeline.Options{ExternalURL: item.ExternalURL})
			if err != nil {
				failed.Add(1)
				log.Error("batch: enrichment failed", zap.Error(err))
				p.markFailed(gctx, log, item.PageID, err)
				return nil
			}

			status := StatusEnriched
			if len(report.Degraded()) > 0 {
				status = StatusPartial
				partial.Add(1)
			} else {
				enriched.Add(1)
			}

			if p.pusher != nil && report.Lead != nil {
				if id, err := p.pusher.Push(gctx, report.Lead); err != nil {
					log.Warn("batch: crm push failed", zap.Error(err))
				} else {
					pushed.Add(1)
					log.Debug("batch: crm record synced", zap.String("crm_id", id))
				}
			}

			if _, err := p.notion.UpdatePage(gctx, item.PageID, &notionapi.PageUpdateRequest{
				Properties: ResultProperties(report, status, p.now()),
			}); err != nil {
				log.Warn("batch: failed to update notion page", zap.Error(err))
			}
			log.Info("batch: lead enriched", zap.String("status", status), zap.String("lead_id", report.LeadID))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, eris.Wrap(err, "batch: processing")
	}

	sum := Summary{
		Total:    len(pages),
		Enriched: int(enriched.Load()),
		Partial:  int(partial.Load()),
		Failed:   int(failed.Load()),
		Pushed:   int(pushed.Load()),
	}
	zap.L().Info("batch: complete",
		zap.Int("enriched", sum.Enriched),
		zap.Int("partial", sum.Partial),
		zap.Int("failed", sum.Failed),
		zap.Int("pushed", sum.Pushed),
	)
	return sum, nil
}

func (p *Processor) markFailed(ctx context.Context, log *zap.Logger, pageID string, cause error) {
	msg := cause.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	_, err := p.notion.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			PropStatus:       notion.Status(StatusFailed),
			PropError:        notion.RichText(msg),
			PropLastEnriched: notion.Date(p.now()),
		},
	})
	if err != nil {
		log.Warn("batch: failed to mark notion page failed", zap.Error(err))
	}
}

// ResultProperties maps a run report onto queue row properties.
func ResultProperties(report *model.RunReport, status string, now time.Time) notionapi.Properties {
	props := notionapi.Properties{
		PropStatus:       notion.Status(status),
		PropLeadID:       notion.RichText(report.LeadID),
		PropLastEnriched: notion.Date(now),
	}

	degraded := report.Degraded()
	names := make([]string, len(degraded))
	for i, d := range degraded {
		names[i] = string(d)
	}
	props[PropDegraded] = notion.RichText(strings.Join(names, ", "))

	lead := report.Lead
	if lead == nil {
		return props
	}
	if p := lead.Profile.Profile; p != nil {
		props[PropFollowers] = notion.Number(float64(p.FollowersCount))
		if p.ExternalURL != "" {
			props[PropWebsite] = notion.URL(p.ExternalURL)
		}
	}
	if er := lead.Reels.EngagementRate; er != nil {
		props[PropEngagement] = notion.Number(*er)
	}
	if a := lead.Analysis.Analysis; a != nil {
		props[PropSummary] = notion.RichText(a.Summary)
		if a.Niche != nil {
			props[PropNiche] = notion.RichText(*a.Niche)
		}
	}
	return props
}
