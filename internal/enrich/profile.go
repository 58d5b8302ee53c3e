package enrich

import (
	"encoding/json"

	"github.com/JaimeStill/botwatch/internal/profiles"
)

type profileInfo struct {
	Data struct {
		User *userInfo `json:"user"`
	} `json:"data"`
}

type edgeCount struct {
	Count int `json:"count"`
}

type userInfo struct {
	Biography          string    `json:"biography"`
	ExternalURL        string    `json:"external_url"`
	IsBusinessAccount  bool      `json:"is_business_account"`
	IsPrivate          *bool     `json:"is_private"`
	IsVerified         *bool     `json:"is_verified"`
	HighlightReelCount int       `json:"highlight_reel_count"`
	HasClips           bool      `json:"has_clips"`
	HasChaining        bool      `json:"has_chaining"`
	FollowedBy         edgeCount `json:"edge_followed_by"`
	Follow             edgeCount `json:"edge_follow"`
	Media              edgeCount `json:"edge_owner_to_timeline_media"`
	AdminedPages       int       `json:"num_of_admined_pages"`
}

func apply(p profiles.Profile, u *userInfo) profiles.Profile {
	out := p.Clone()

	out.HasBiography = u.Biography != ""
	out.HasExternalURL = u.ExternalURL != ""
	out.IsBusiness = u.IsBusinessAccount
	out.HasHighlights = u.HighlightReelCount > 0
	out.HasHighlightReels = u.HasClips
	out.HasChaining = u.HasChaining
	out.FollowerCount = u.FollowedBy.Count
	out.FollowingCount = u.Follow.Count
	out.MediaCount = u.Media.Count
	out.NumAdminedPages = u.AdminedPages
	out.HasStories = activeStory(p)
	out.ComplementError = ""

	if u.IsPrivate != nil {
		out.IsPrivate = *u.IsPrivate
	}
	if u.IsVerified != nil {
		out.IsVerified = *u.IsVerified
	}

	return out
}

// activeStory reports whether the liker record carries a non-zero
// latest_reel_media timestamp.
func activeStory(p profiles.Profile) bool {
	raw, ok := p.Extra["latest_reel_media"]
	if !ok {
		return false
	}
	var ts json.Number
	if err := json.Unmarshal(raw, &ts); err != nil {
		return false
	}
	n, err := ts.Int64()
	return err == nil && n > 0
}
