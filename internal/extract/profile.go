package extract

import (
	"github.com/sells-group/lead-enricher/internal/job"
	"github.com/sells-group/lead-enricher/internal/model"
)

// Profile normalizes the first usable profile-scraper record.
func Profile(recs []job.Record) model.StageResult[model.ProfileGroup] {
	ok, providerErr := usable(recs)
	if len(ok) == 0 {
		if providerErr != "" {
			return model.Degraded[model.ProfileGroup]("profile unavailable: " + providerErr)
		}
		return model.Degraded[model.ProfileGroup]("empty result")
	}

	r := ok[0]
	p := &model.Profile{
		Username:       r.String("username"),
		FullName:       r.String("fullName"),
		Biography:      r.String("biography"),
		ExternalURL:    r.FirstString("externalUrl", "externalUrlShimmed"),
		AvatarURL:      r.FirstString("profilePicUrlHD", "profilePicUrl"),
		FollowersCount: r.Int("followersCount"),
		FollowsCount:   r.Int("followsCount"),
		Private:        r.Bool("private"),
		Verified:       r.Bool("verified"),
		Related:        relatedProfiles(r.Records("relatedProfiles")),
	}
	return model.Ok(model.ProfileGroup{Profile: p, HasProfile: true})
}

func relatedProfiles(recs []job.Record) []model.RelatedProfile {
	out := make([]model.RelatedProfile, 0, len(recs))
	for _, r := range recs {
		username := r.String("username")
		if username == "" {
			continue
		}
		out = append(out, model.RelatedProfile{
			Username:  username,
			FullName:  r.FirstString("full_name", "fullName"),
			AvatarURL: r.FirstString("profile_pic_url", "profilePicUrl"),
			Verified:  r.Bool("is_verified") || r.Bool("verified"),
		})
	}
	return out
}
