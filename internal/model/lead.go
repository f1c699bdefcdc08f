package model

import (
	"strings"
	"time"
)

// NormalizeUsername canonicalizes an Instagram handle: trimmed, lowercase,
// without a leading "@".
func NormalizeUsername(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(s)
}

// Lead is the persisted enrichment record for one Instagram-linked contact.
// Each stage owns exactly one field group and replaces it wholesale.
type Lead struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Profile   ProfileGroup  `json:"profile"`
	Reels     ReelsGroup    `json:"reels"`
	Website   WebsiteGroup  `json:"website"`
	Analysis  AnalysisGroup `json:"analysis"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ProfileGroup is the field group owned by the profile stage.
type ProfileGroup struct {
	Profile    *Profile `json:"profile"`
	HasProfile bool     `json:"has_profile"`
}

// Profile holds normalized Instagram profile fields.
type Profile struct {
	Username       string           `json:"username"`
	FullName       string           `json:"full_name"`
	Biography      string           `json:"biography"`
	ExternalURL    string           `json:"external_url"`
	AvatarURL      string           `json:"avatar_url"`
	FollowersCount int64            `json:"followers_count"`
	FollowsCount   int64            `json:"follows_count"`
	Private        bool             `json:"is_private"`
	Verified       bool             `json:"is_verified"`
	Related        []RelatedProfile `json:"related_profiles"`
}

// RelatedProfile is an account Instagram suggests alongside the lead.
type RelatedProfile struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	Verified  bool   `json:"is_verified"`
}

// ReelsGroup is the field group owned by the reels stage.
type ReelsGroup struct {
	Reels []Reel `json:"reels"`
	// EngagementRate is nil when the capped reels have no views at all.
	EngagementRate *float64 `json:"er_avg"`
	HasReels       bool     `json:"has_reels"`
}

// Reel holds the metrics of a single short-form video.
type Reel struct {
	URL        string     `json:"url"`
	Likes      int64      `json:"likes"`
	Comments   int64      `json:"comments"`
	Views      int64      `json:"views"`
	PostedAt   *time.Time `json:"posted_at"`
	Engagement float64    `json:"engagement"`
}

// WebsiteGroup is the field group owned by the website stage.
type WebsiteGroup struct {
	Pages      []Page `json:"pages"`
	Primary    *Page  `json:"primary"`
	HasWebsite bool   `json:"has_website"`
}

// Page is a single crawled page of the lead's website.
type Page struct {
	URL         string `json:"url"`
	Depth       int    `json:"depth"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Language    string `json:"language"`
	Text        string `json:"text"`
	Markdown    string `json:"markdown"`
}

// AnalysisGroup is the field group owned by the summarization stage.
type AnalysisGroup struct {
	Analysis *Analysis `json:"ai_analysis"`
	Complete bool      `json:"ai_analysis_complete"`
}

// Analysis is the structured LLM summary of a lead.
type Analysis struct {
	Summary          string   `json:"summary"`
	Prices           []string `json:"prices"`
	DiscountedPrices []string `json:"discounted_prices"`
	Niche            *string  `json:"niche"`
	OtherContact     *string  `json:"other_contact"`
}

// Empty reports whether the analysis carries no information.
func (a *Analysis) Empty() bool {
	if a == nil {
		return true
	}
	return a.Summary == "" &&
		len(a.Prices) == 0 &&
		len(a.DiscountedPrices) == 0 &&
		(a.Niche == nil || *a.Niche == "") &&
		(a.OtherContact == nil || *a.OtherContact == "")
}

// NeutralProfile is the value written when the profile stage degrades.
func NeutralProfile() ProfileGroup {
	return ProfileGroup{}
}

// NeutralReels is the value written when the reels stage degrades.
func NeutralReels() ReelsGroup {
	return ReelsGroup{Reels: []Reel{}}
}

// NeutralWebsite is the value written when the website stage degrades.
func NeutralWebsite() WebsiteGroup {
	return WebsiteGroup{Pages: []Page{}}
}

// NeutralAnalysis is the value written when the summarization stage degrades.
func NeutralAnalysis() AnalysisGroup {
	return AnalysisGroup{}
}
