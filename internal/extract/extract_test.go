package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-enricher/internal/job"
)

func TestProfile(t *testing.T) {
	recs := []job.Record{{
		"username":        "acme.studio",
		"fullName":        "Acme Studio",
		"biography":       "Pilates in Austin",
		"externalUrl":     "https://acme.studio",
		"profilePicUrl":   "https://cdn/sd.jpg",
		"profilePicUrlHD": "https://cdn/hd.jpg",
		"followersCount":  json.Number("15230"),
		"followsCount":    json.Number("310"),
		"private":         false,
		"verified":        true,
		"relatedProfiles": []any{
			map[string]any{"username": "other", "full_name": "Other", "profile_pic_url": "https://cdn/o.jpg", "is_verified": true},
			map[string]any{"full_name": "no username"},
		},
	}}

	res := Profile(recs)
	require.False(t, res.Degraded)
	require.True(t, res.Value.HasProfile)
	p := res.Value.Profile
	assert.Equal(t, "acme.studio", p.Username)
	assert.Equal(t, "Acme Studio", p.FullName)
	assert.Equal(t, "Pilates in Austin", p.Biography)
	assert.Equal(t, "https://acme.studio", p.ExternalURL)
	assert.Equal(t, "https://cdn/hd.jpg", p.AvatarURL)
	assert.Equal(t, int64(15230), p.FollowersCount)
	assert.Equal(t, int64(310), p.FollowsCount)
	assert.True(t, p.Verified)
	assert.False(t, p.Private)
	require.Len(t, p.Related, 1)
	assert.Equal(t, "other", p.Related[0].Username)
	assert.True(t, p.Related[0].Verified)
}

func TestProfile_Defaults(t *testing.T) {
	res := Profile([]job.Record{{"username": "bare", "profilePicUrl": "https://cdn/sd.jpg"}})
	require.False(t, res.Degraded)
	p := res.Value.Profile
	assert.Equal(t, "", p.Biography)
	assert.Equal(t, "", p.FullName)
	assert.Equal(t, "https://cdn/sd.jpg", p.AvatarURL)
	assert.Equal(t, int64(0), p.FollowersCount)
	assert.NotNil(t, p.Related)
	assert.Empty(t, p.Related)
}

func TestProfile_Degraded(t *testing.T) {
	res := Profile(nil)
	assert.True(t, res.Degraded)
	assert.Equal(t, "empty result", res.Reason)

	res = Profile([]job.Record{{"error": "not_found", "errorDescription": "Profile does not exist"}})
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Reason, "Profile does not exist")
	assert.Nil(t, res.Value.Profile)
}

func TestReels_EngagementAggregate(t *testing.T) {
	recs := []job.Record{
		{"url": "https://ig/r/1", "likesCount": 10, "commentsCount": 5, "videoViewCount": 100, "timestamp": "2026-05-02T10:00:00Z"},
		{"url": "https://ig/r/2", "likesCount": 20, "commentsCount": 0, "videoViewCount": 0, "timestamp": "2026-05-01T10:00:00Z"},
	}

	res := Reels(recs, 2)
	require.False(t, res.Degraded)
	g := res.Value
	require.Len(t, g.Reels, 2)
	require.NotNil(t, g.EngagementRate)
	assert.InDelta(t, 15.00, *g.EngagementRate, 1e-9)
	assert.InDelta(t, 15.00, g.Reels[0].Engagement, 1e-9)
	assert.Equal(t, 0.0, g.Reels[1].Engagement)
	assert.True(t, g.HasReels)
}

func TestReels_NoViewsNilAggregate(t *testing.T) {
	res := Reels([]job.Record{{"likesCount": 3, "commentsCount": 1}}, 2)
	require.False(t, res.Degraded)
	assert.Nil(t, res.Value.EngagementRate)
	assert.Equal(t, 0.0, res.Value.Reels[0].Engagement)
}

func TestReels_CapsMostRecent(t *testing.T) {
	recs := []job.Record{
		{"shortCode": "old", "timestamp": "2026-01-01T00:00:00Z", "videoPlayCount": 50, "likesCount": 5},
		{"shortCode": "undated", "videoViewCount": 10},
		{"shortCode": "new", "timestamp": "2026-03-01T00:00:00Z", "videoViewCount": 300, "likesCount": 3},
		{"shortCode": "mid", "timestamp": "2026-02-01T00:00:00Z", "videoViewCount": 200, "likesCount": 2},
	}
	res := Reels(recs, 2)
	require.Len(t, res.Value.Reels, 2)
	assert.Equal(t, "https://www.instagram.com/reel/new/", res.Value.Reels[0].URL)
	assert.Equal(t, "https://www.instagram.com/reel/mid/", res.Value.Reels[1].URL)
	assert.InDelta(t, 1.0, *res.Value.EngagementRate, 1e-9)

	all := Reels(recs, 10)
	require.Len(t, all.Value.Reels, 4)
	assert.Equal(t, "https://www.instagram.com/reel/undated/", all.Value.Reels[3].URL)
	assert.Equal(t, int64(50), all.Value.Reels[2].Views, "falls back to play count")
}

func TestReels_DefaultLimitAndRounding(t *testing.T) {
	recs := []job.Record{
		{"likesCount": 1, "commentsCount": 0, "videoViewCount": 3, "timestamp": "2026-01-03T00:00:00Z"},
		{"likesCount": 1, "commentsCount": 0, "videoViewCount": 3, "timestamp": "2026-01-02T00:00:00Z"},
		{"likesCount": 1, "commentsCount": 0, "videoViewCount": 3, "timestamp": "2026-01-01T00:00:00Z"},
	}
	res := Reels(recs, 0)
	assert.Len(t, res.Value.Reels, DefaultReelLimit)
	assert.InDelta(t, 33.33, *res.Value.EngagementRate, 1e-9)
	assert.InDelta(t, 33.33, res.Value.Reels[0].Engagement, 1e-9)
}

func TestReels_Degraded(t *testing.T) {
	assert.True(t, Reels(nil, 2).Degraded)
	res := Reels([]job.Record{{"error": "no_items"}}, 2)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Reason, "no_items")
}

func TestWebsite(t *testing.T) {
	recs := []job.Record{
		{
			"url":      "https://acme.studio/about",
			"crawl":    map[string]any{"depth": json.Number("1")},
			"metadata": map[string]any{"title": "About", "languageCode": "en_us"},
			"text":     "  About   us \n team ",
			"markdown": "# About",
		},
		{
			"url":      "https://acme.studio/",
			"crawl":    map[string]any{"depth": json.Number("0")},
			"metadata": map[string]any{"title": "Home", "description": "Studio", "author": "Acme", "languageCode": "EN"},
			"text":     "Welcome",
			"markdown": "# Home",
		},
	}

	res := Website(recs)
	require.False(t, res.Degraded)
	g := res.Value
	require.Len(t, g.Pages, 2)
	require.NotNil(t, g.Primary)
	assert.Equal(t, "https://acme.studio/", g.Primary.URL)
	assert.Equal(t, "Home", g.Primary.Title)
	assert.Equal(t, "en", g.Primary.Language)
	assert.Equal(t, "en-US", g.Pages[0].Language)
	assert.Equal(t, "About us team", g.Pages[0].Text)
	assert.Equal(t, 1, g.Pages[0].Depth)
	assert.True(t, g.HasWebsite)
}

func TestWebsite_PrimaryFallsBackToFirst(t *testing.T) {
	res := Website([]job.Record{
		{"url": "https://a/x", "crawl": map[string]any{"depth": 2}, "markdown": "x"},
		{"url": "https://a/y", "crawl": map[string]any{"depth": 1}, "markdown": "y"},
	})
	require.NotNil(t, res.Value.Primary)
	assert.Equal(t, "https://a/x", res.Value.Primary.URL)
}

func TestWebsite_HTMLFallback(t *testing.T) {
	html := `<html lang="fr-CA"><head><title> Bonjour </title>
<meta name="description" content="Un studio"><meta name="author" content="Acme"></head>
<body>
<h1>Salut</h1>
<script>var x = 1;</script>
<p>Le <b>studio</b></p>
</body></html>`

	res := Website([]job.Record{{"url": "https://acme.ca/", "html": html}})
	require.False(t, res.Degraded)
	p := res.Value.Primary
	assert.Equal(t, "Bonjour", p.Title)
	assert.Equal(t, "Un studio", p.Description)
	assert.Equal(t, "Acme", p.Author)
	assert.Equal(t, "fr-CA", p.Language)
	assert.Equal(t, "Salut Le studio", p.Text)
	assert.Contains(t, p.Markdown, "# Salut")
	assert.Contains(t, p.Markdown, "**studio**")
}

func TestWebsite_Degraded(t *testing.T) {
	assert.Equal(t, "empty result", Website(nil).Reason)
	assert.True(t, Website([]job.Record{{"crawl": map[string]any{}}}).Degraded)
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "en-US", normalizeLanguage("en_US"))
	assert.Equal(t, "pt-BR", normalizeLanguage("PT-br"))
	assert.Equal(t, "", normalizeLanguage(""))
	assert.Equal(t, "", normalizeLanguage("not a language!"))
}

func TestParseAnalysis(t *testing.T) {
	text := "Here you go:\n```json\n{\"summary\":\" Boutique pilates studio \",\"prices\":[\"$25 drop-in\", 199],\"discounted_prices\":[],\"niche\":\"fitness\",\"other_contact\":\"  \"}\n```"
	a, err := ParseAnalysis(text)
	require.NoError(t, err)
	assert.Equal(t, "Boutique pilates studio", a.Summary)
	assert.Equal(t, []string{"$25 drop-in", "199"}, a.Prices)
	assert.Equal(t, []string{}, a.DiscountedPrices)
	require.NotNil(t, a.Niche)
	assert.Equal(t, "fitness", *a.Niche)
	assert.Nil(t, a.OtherContact)
}

func TestParseAnalysis_Defaults(t *testing.T) {
	a, err := ParseAnalysis(`{}`)
	require.NoError(t, err)
	assert.Equal(t, "", a.Summary)
	assert.NotNil(t, a.Prices)
	assert.Empty(t, a.Prices)
	assert.NotNil(t, a.DiscountedPrices)
	assert.Nil(t, a.Niche)
	assert.Nil(t, a.OtherContact)
	assert.True(t, a.Empty())
}

func TestParseAnalysis_SchemaFaults(t *testing.T) {
	for name, text := range map[string]string{
		"empty":        "",
		"prose only":   "I could not find anything.",
		"broken json":  `{"summary": "x",`,
		"wrong type":   `{"summary": 42}`,
		"bad list":     `{"prices": "free"}`,
		"nested items": `{"prices": [{"amount": 1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAnalysis(text)
			var se *SchemaError
			require.True(t, errors.As(err, &se), "got %v", err)

			res := Analysis(text)
			assert.True(t, res.Degraded)
			assert.False(t, res.Value.Complete)
		})
	}
}

func TestAnalysis_Ok(t *testing.T) {
	res := Analysis(`{"summary":"Yoga","niche":null}`)
	require.False(t, res.Degraded)
	assert.True(t, res.Value.Complete)
	assert.Equal(t, "Yoga", res.Value.Analysis.Summary)
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON(`Sure! {"a":1} Hope that helps.`))
	assert.Equal(t, "", CleanJSON("no json"))
}
