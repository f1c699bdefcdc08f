package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/pipeline"
)

type fakeNotion struct {
	mu       sync.Mutex
	pages    []notionapi.Page
	queryErr error
	created  []notionapi.Properties
	updates  map[string]notionapi.Properties
}

func (f *fakeNotion) QueryDatabase(_ context.Context, _ string, _ *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &notionapi.DatabaseQueryResponse{Results: f.pages}, nil
}

func (f *fakeNotion) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req.Properties)
	return &notionapi.Page{ID: "new"}, nil
}

func (f *fakeNotion) UpdatePage(_ context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[string]notionapi.Properties)
	}
	f.updates[pageID] = req.Properties
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (f *fakeNotion) status(pageID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.updates[pageID][PropStatus].(notionapi.StatusProperty)
	if !ok {
		return ""
	}
	return sp.Status.Name
}

type fakeEnricher struct {
	mu      sync.Mutex
	calls   map[string]pipeline.Options
	reports map[string]*model.RunReport
	errs    map[string]error
}

func (f *fakeEnricher) Enrich(_ context.Context, username string, opts pipeline.Options) (*model.RunReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]pipeline.Options)
	}
	f.calls[username] = opts
	if err := f.errs[username]; err != nil {
		return nil, err
	}
	return f.reports[username], nil
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []string
	err    error
}

func (f *fakePusher) Push(_ context.Context, lead *model.Lead) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.pushed = append(f.pushed, lead.Username)
	return "00Q" + lead.Username, nil
}

func queuePage(id, title, instagram string) notionapi.Page {
	props := notionapi.Properties{
		PropName: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: title}}},
	}
	if instagram != "" {
		props[PropInstagram] = &notionapi.URLProperty{URL: instagram}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

func okReport(username string, degraded ...model.StageName) *model.RunReport {
	er := 12.5
	niche := "bakery"
	r := &model.RunReport{
		LeadID: "lead-" + username,
		Lead: &model.Lead{
			ID:       "lead-" + username,
			Username: username,
			Profile: model.ProfileGroup{HasProfile: true, Profile: &model.Profile{
				FullName: "Nord Bakery", FollowersCount: 900, ExternalURL: "https://nord.example",
			}},
			Reels:    model.ReelsGroup{EngagementRate: &er},
			Analysis: model.AnalysisGroup{Analysis: &model.Analysis{Summary: "Sourdough", Niche: &niche}},
		},
	}
	for _, s := range model.Stages {
		status := model.StageStatusOK
		for _, d := range degraded {
			if d == s {
				status = model.StageStatusDegraded
			}
		}
		r.Stages = append(r.Stages, model.StageReport{Stage: s, Status: status})
	}
	return r
}

func TestParseHandle(t *testing.T) {
	cases := map[string]string{
		"@Studio.Lumen":                           "studio.lumen",
		" bakery_nord ":                           "bakery_nord",
		"https://www.instagram.com/studio.lumen/": "studio.lumen",
		"instagram.com/Bakery.Nord?hl=en":         "bakery.nord",
		"https://instagram.com/reel_maker/reels/": "reel_maker",
		"":                                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseHandle(in), in)
	}
}

func TestItemFromPage(t *testing.T) {
	item := ItemFromPage(queuePage("p1", "Nord Bakery", "https://instagram.com/bakery.nord"))
	assert.Equal(t, Item{PageID: "p1", Username: "bakery.nord"}, item)

	item = ItemFromPage(queuePage("p2", "@Studio.Lumen", ""))
	assert.Equal(t, "studio.lumen", item.Username)
}

func TestProcessor_Run(t *testing.T) {
	nc := &fakeNotion{pages: []notionapi.Page{
		queuePage("p1", "bakery.nord", ""),
		queuePage("p2", "studio.lumen", ""),
		queuePage("p3", "broken", ""),
		queuePage("p4", "", ""),
	}}
	en := &fakeEnricher{
		reports: map[string]*model.RunReport{
			"bakery.nord":  okReport("bakery.nord"),
			"studio.lumen": okReport("studio.lumen", model.StageWebsite),
		},
		errs: map[string]error{"broken": eris.New("pipeline: get lead: db down")},
	}
	pusher := &fakePusher{}
	p := NewProcessor(nc, en, pusher)
	p.now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }

	sum, err := p.Run(context.Background(), "leads", Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 4, Enriched: 1, Partial: 1, Failed: 2, Pushed: 2}, sum)

	assert.Equal(t, StatusEnriched, nc.status("p1"))
	assert.Equal(t, StatusPartial, nc.status("p2"))
	assert.Equal(t, StatusFailed, nc.status("p3"))
	assert.Equal(t, StatusFailed, nc.status("p4"))
	assert.ElementsMatch(t, []string{"bakery.nord", "studio.lumen"}, pusher.pushed)

	errProp := nc.updates["p4"][PropError].(notionapi.RichTextProperty)
	assert.Equal(t, "no instagram handle", errProp.RichText[0].Text.Content)
}

func TestProcessor_LimitAndWebsite(t *testing.T) {
	page := queuePage("p1", "bakery.nord", "")
	page.Properties[PropWebsite] = &notionapi.URLProperty{URL: "https://override.example"}
	nc := &fakeNotion{}
	en := &fakeEnricher{reports: map[string]*model.RunReport{"bakery.nord": okReport("bakery.nord")}}

	sum, err := NewProcessor(nc, en, nil).Process(context.Background(),
		[]notionapi.Page{page, queuePage("p2", "other", "")}, Options{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	assert.Zero(t, sum.Pushed)
	assert.Equal(t, "https://override.example", en.calls["bakery.nord"].ExternalURL)
	assert.NotContains(t, en.calls, "other")
}

func TestProcessor_PushFailureDoesNotFailLead(t *testing.T) {
	nc := &fakeNotion{}
	en := &fakeEnricher{reports: map[string]*model.RunReport{"bakery.nord": okReport("bakery.nord")}}

	sum, err := NewProcessor(nc, en, &fakePusher{err: eris.New("sf down")}).Process(context.Background(),
		[]notionapi.Page{queuePage("p1", "bakery.nord", "")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Enriched)
	assert.Zero(t, sum.Pushed)
	assert.Equal(t, StatusEnriched, nc.status("p1"))
}

func TestProcessor_Empty(t *testing.T) {
	sum, err := NewProcessor(&fakeNotion{}, &fakeEnricher{}, nil).Run(context.Background(), "leads", Options{})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestProcessor_QueryError(t *testing.T) {
	_, err := NewProcessor(&fakeNotion{queryErr: eris.New("401")}, &fakeEnricher{}, nil).
		Run(context.Background(), "leads", Options{})
	assert.ErrorContains(t, err, "batch: query queue")
}

func TestResultProperties(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	props := ResultProperties(okReport("bakery.nord", model.StageReels, model.StageWebsite), StatusPartial, now)

	assert.Equal(t, 900.0, props[PropFollowers].(notionapi.NumberProperty).Number)
	assert.Equal(t, 12.5, props[PropEngagement].(notionapi.NumberProperty).Number)
	assert.Equal(t, "https://nord.example", props[PropWebsite].(notionapi.URLProperty).URL)
	assert.Equal(t, "reels, website", props[PropDegraded].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.Equal(t, "bakery", props[PropNiche].(notionapi.RichTextProperty).RichText[0].Text.Content)

	bare := ResultProperties(&model.RunReport{LeadID: "x"}, StatusEnriched, now)
	assert.NotContains(t, bare, PropFollowers)
	assert.Contains(t, bare, PropLeadID)
}
