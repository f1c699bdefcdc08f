// Package store persists leads and run reports. Every stage write replaces
// exactly one field group with a single UPDATE, so concurrent stages on the
// same lead never overwrite each other's groups.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/model"
)

// ErrNotFound is returned when a lead or run does not exist.
var ErrNotFound = eris.New("record not found")

// Store defines the persistence interface for the enrichment pipeline.
type Store interface {
	// Leads
	EnsureLead(ctx context.Context, username string) (*model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	GetLeadByUsername(ctx context.Context, username string) (*model.Lead, error)
	ListLeads(ctx context.Context, limit int) ([]model.Lead, error)

	// Field groups; each replaces the whole group.
	UpdateProfile(ctx context.Context, id string, g model.ProfileGroup) error
	UpdateReels(ctx context.Context, id string, g model.ReelsGroup) error
	UpdateWebsite(ctx context.Context, id string, g model.WebsiteGroup) error
	UpdateAnalysis(ctx context.Context, id string, g model.AnalysisGroup) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)

	// Runs
	SaveRun(ctx context.Context, report *model.RunReport) (*model.Run, error)
	ListRuns(ctx context.Context, leadID string, limit int) ([]model.Run, error)
	RecentRuns(ctx context.Context, since time.Time, limit int) ([]model.Run, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const leadColumns = `id, username, profile, has_profile, reels, er_avg, has_reels, website, has_website, ai_analysis, ai_analysis_complete, created_at, updated_at`

const (
	defaultRunLimit    = 20
	defaultRecentLimit = 10000
	defaultLeadLimit   = 1000
)

// leadRow is the column-level shape of a leads row, shared by both backends.
type leadRow struct {
	ID               string
	Username         string
	Profile          []byte
	HasProfile       bool
	Reels            []byte
	ERAvg            *float64
	HasReels         bool
	Website          []byte
	HasWebsite       bool
	Analysis         []byte
	AnalysisComplete bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type scannable interface {
	Scan(dest ...any) error
}

func (r *leadRow) scan(row scannable) error {
	return row.Scan(
		&r.ID, &r.Username,
		&r.Profile, &r.HasProfile,
		&r.Reels, &r.ERAvg, &r.HasReels,
		&r.Website, &r.HasWebsite,
		&r.Analysis, &r.AnalysisComplete,
		&r.CreatedAt, &r.UpdatedAt,
	)
}

// websiteDoc is the stored form of a WebsiteGroup's content.
type websiteDoc struct {
	Pages   []model.Page `json:"pages"`
	Primary *model.Page  `json:"primary"`
}

func (r *leadRow) lead() (*model.Lead, error) {
	l := &model.Lead{
		ID:        r.ID,
		Username:  r.Username,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Profile:   model.ProfileGroup{HasProfile: r.HasProfile},
		Reels:     model.ReelsGroup{Reels: []model.Reel{}, EngagementRate: r.ERAvg, HasReels: r.HasReels},
		Website:   model.WebsiteGroup{Pages: []model.Page{}, HasWebsite: r.HasWebsite},
		Analysis:  model.AnalysisGroup{Complete: r.AnalysisComplete},
	}

	if len(r.Profile) > 0 {
		if err := json.Unmarshal(r.Profile, &l.Profile.Profile); err != nil {
			return nil, eris.Wrapf(err, "decode profile of lead %s", r.ID)
		}
	}
	if len(r.Reels) > 0 {
		if err := json.Unmarshal(r.Reels, &l.Reels.Reels); err != nil {
			return nil, eris.Wrapf(err, "decode reels of lead %s", r.ID)
		}
		if l.Reels.Reels == nil {
			l.Reels.Reels = []model.Reel{}
		}
	}
	if len(r.Website) > 0 {
		var doc websiteDoc
		if err := json.Unmarshal(r.Website, &doc); err != nil {
			return nil, eris.Wrapf(err, "decode website of lead %s", r.ID)
		}
		if doc.Pages != nil {
			l.Website.Pages = doc.Pages
		}
		l.Website.Primary = doc.Primary
	}
	if len(r.Analysis) > 0 {
		if err := json.Unmarshal(r.Analysis, &l.Analysis.Analysis); err != nil {
			return nil, eris.Wrapf(err, "decode analysis of lead %s", r.ID)
		}
	}
	return l, nil
}

// encodeJSON marshals v, mapping nil pointers to SQL NULL.
func encodeJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case *model.Profile:
		if t == nil {
			return nil, nil
		}
	case *model.Analysis:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "encode field group")
	}
	return b, nil
}

func encodeReels(g model.ReelsGroup) ([]byte, error) {
	reels := g.Reels
	if reels == nil {
		reels = []model.Reel{}
	}
	return encodeJSON(reels)
}

func encodeWebsite(g model.WebsiteGroup) ([]byte, error) {
	pages := g.Pages
	if pages == nil {
		pages = []model.Page{}
	}
	return encodeJSON(websiteDoc{Pages: pages, Primary: g.Primary})
}

func decodeRun(id, leadID string, report []byte, createdAt time.Time) (*model.Run, error) {
	run := &model.Run{ID: id, LeadID: leadID, CreatedAt: createdAt}
	if len(report) > 0 {
		run.Report = &model.RunReport{}
		if err := json.Unmarshal(report, run.Report); err != nil {
			return nil, eris.Wrapf(err, "decode run %s", id)
		}
	}
	return run, nil
}

func notFound(kind, key string) error {
	return eris.Wrapf(ErrNotFound, "%s %s", kind, key)
}
