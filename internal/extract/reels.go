package extract

import (
	"sort"

	"github.com/sells-group/lead-enricher/internal/job"
	"github.com/sells-group/lead-enricher/internal/model"
)

// DefaultReelLimit is how many of the most recent reels are kept.
const DefaultReelLimit = 2

// Reels normalizes reel-scraper records. Only the limit most recent items
// (by timestamp, undated last) are kept and feed the aggregate rate.
func Reels(recs []job.Record, limit int) model.StageResult[model.ReelsGroup] {
	if limit <= 0 {
		limit = DefaultReelLimit
	}
	ok, providerErr := usable(recs)
	if len(ok) == 0 {
		if providerErr != "" {
			return model.Degraded[model.ReelsGroup]("reels unavailable: " + providerErr)
		}
		return model.Degraded[model.ReelsGroup]("empty result")
	}

	reels := make([]model.Reel, 0, len(ok))
	for _, r := range ok {
		reels = append(reels, reel(r))
	}
	sort.SliceStable(reels, func(i, j int) bool {
		a, b := reels[i].PostedAt, reels[j].PostedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if len(reels) > limit {
		reels = reels[:limit]
	}

	return model.Ok(model.ReelsGroup{
		Reels:          reels,
		EngagementRate: EngagementRate(reels),
		HasReels:       true,
	})
}

func reel(r job.Record) model.Reel {
	views, ok := r.IntOK("videoViewCount")
	if !ok || views == 0 {
		views = r.Int("videoPlayCount")
	}
	url := r.String("url")
	if url == "" {
		if code := r.String("shortCode"); code != "" {
			url = "https://www.instagram.com/reel/" + code + "/"
		}
	}
	likes := max(r.Int("likesCount"), 0)
	comments := max(r.Int("commentsCount"), 0)

	var engagement float64
	if views > 0 {
		engagement = round2(float64(likes+comments) / float64(views) * 100)
	} else {
		views = 0
	}

	return model.Reel{
		URL:        url,
		Likes:      likes,
		Comments:   comments,
		Views:      views,
		PostedAt:   r.Time("timestamp"),
		Engagement: engagement,
	}
}

// EngagementRate is Σ(likes+comments) / Σviews * 100 over reels that have
// views, rounded to two decimals. It is nil when no reel has views.
func EngagementRate(reels []model.Reel) *float64 {
	var interactions, views int64
	for _, r := range reels {
		if r.Views <= 0 {
			continue
		}
		interactions += r.Likes + r.Comments
		views += r.Views
	}
	if views == 0 {
		return nil
	}
	rate := round2(float64(interactions) / float64(views) * 100)
	return &rate
}
