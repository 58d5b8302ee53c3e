// Package scoring turns a liker profile into a bot score and verdict.
//
// A score is an unbounded weighted sum over profile signals. Each signal is
// either a raw flag (0 or 1), a normalized counter, or one of the feature
// scores computed in this package. Positive weights raise suspicion and
// negative weights lower it. A profile is classified as a bot only when its
// score is strictly greater than the configured threshold.
package scoring

import (
	"fmt"
	"math"
)

// Weights holds one signed weight per signal plus the decision threshold.
// Any finite value is legal; zero disables a signal.
type Weights struct {
	FollowerFollowingRatio float64 `json:"weightFollowerFollowingRatio"`
	IsPrivate              float64 `json:"weightIsPrivate"`
	IsVerified             float64 `json:"weightIsVerified"`
	HasBiography           float64 `json:"weightHasBiography"`
	HasExternalURL         float64 `json:"weightHasExternalUrl"`
	MediaCount             float64 `json:"weightMediaCount"`
	HasStories             float64 `json:"weightHasStories"`
	HasHighlights          float64 `json:"weightHasHighlights"`
	UsernamePattern        float64 `json:"weightUsernamePattern"`
	FullNamePattern        float64 `json:"weightFullNamePattern"`
	FollowerCount          float64 `json:"weightFollowerCount"`
	FollowingCount         float64 `json:"weightFollowingCount"`
	AccountAge             float64 `json:"weightAccountAge"`
	HasChaining            float64 `json:"weightHasChaining"`
	IsBusiness             float64 `json:"weightIsBusiness"`
	NumOfAdminedPages      float64 `json:"weightNumOfAdminedPages"`
	HasHighlightReels      float64 `json:"weightHasHighlightReels"`
	BotThreshold           float64 `json:"botThreshold"`
}

// DefaultWeights returns the shipped weight configuration.
func DefaultWeights() Weights {
	return Weights{
		FollowerFollowingRatio: -2.0,
		IsPrivate:              1.0,
		IsVerified:             -8.0,
		HasBiography:           -3.0,
		HasExternalURL:         -2.0,
		MediaCount:             -4.0,
		HasStories:             -3.0,
		HasHighlights:          -2.0,
		UsernamePattern:        2.0,
		FullNamePattern:        1.0,
		FollowerCount:          -2.0,
		FollowingCount:         0.5,
		AccountAge:             -1.0,
		HasChaining:            0.5,
		IsBusiness:             -3.0,
		NumOfAdminedPages:      0.5,
		HasHighlightReels:      -4.0,
		BotThreshold:           0.448,
	}
}

// Validate rejects NaN and infinite weights.
func (w Weights) Validate() error {
	for name, v := range w.values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidWeight, name, v)
		}
	}
	return nil
}

func (w Weights) values() map[string]float64 {
	return map[string]float64{
		"weightFollowerFollowingRatio": w.FollowerFollowingRatio,
		"weightIsPrivate":              w.IsPrivate,
		"weightIsVerified":             w.IsVerified,
		"weightHasBiography":           w.HasBiography,
		"weightHasExternalUrl":         w.HasExternalURL,
		"weightMediaCount":             w.MediaCount,
		"weightHasStories":             w.HasStories,
		"weightHasHighlights":          w.HasHighlights,
		"weightUsernamePattern":        w.UsernamePattern,
		"weightFullNamePattern":        w.FullNamePattern,
		"weightFollowerCount":          w.FollowerCount,
		"weightFollowingCount":         w.FollowingCount,
		"weightAccountAge":             w.AccountAge,
		"weightHasChaining":            w.HasChaining,
		"weightIsBusiness":             w.IsBusiness,
		"weightNumOfAdminedPages":      w.NumOfAdminedPages,
		"weightHasHighlightReels":      w.HasHighlightReels,
		"botThreshold":                 w.BotThreshold,
	}
}

// Overrides is a partial weight configuration. Nil fields leave the
// corresponding base weight untouched, so an explicit zero can disable a
// signal. It decodes from the [ranker] config section and from API request
// bodies.
type Overrides struct {
	FollowerFollowingRatio *float64 `json:"weightFollowerFollowingRatio,omitempty" toml:"follower_following_ratio"`
	IsPrivate              *float64 `json:"weightIsPrivate,omitempty" toml:"is_private"`
	IsVerified             *float64 `json:"weightIsVerified,omitempty" toml:"is_verified"`
	HasBiography           *float64 `json:"weightHasBiography,omitempty" toml:"has_biography"`
	HasExternalURL         *float64 `json:"weightHasExternalUrl,omitempty" toml:"has_external_url"`
	MediaCount             *float64 `json:"weightMediaCount,omitempty" toml:"media_count"`
	HasStories             *float64 `json:"weightHasStories,omitempty" toml:"has_stories"`
	HasHighlights          *float64 `json:"weightHasHighlights,omitempty" toml:"has_highlights"`
	UsernamePattern        *float64 `json:"weightUsernamePattern,omitempty" toml:"username_pattern"`
	FullNamePattern        *float64 `json:"weightFullNamePattern,omitempty" toml:"full_name_pattern"`
	FollowerCount          *float64 `json:"weightFollowerCount,omitempty" toml:"follower_count"`
	FollowingCount         *float64 `json:"weightFollowingCount,omitempty" toml:"following_count"`
	AccountAge             *float64 `json:"weightAccountAge,omitempty" toml:"account_age"`
	HasChaining            *float64 `json:"weightHasChaining,omitempty" toml:"has_chaining"`
	IsBusiness             *float64 `json:"weightIsBusiness,omitempty" toml:"is_business"`
	NumOfAdminedPages      *float64 `json:"weightNumOfAdminedPages,omitempty" toml:"num_of_admined_pages"`
	HasHighlightReels      *float64 `json:"weightHasHighlightReels,omitempty" toml:"has_highlight_reels"`
	BotThreshold           *float64 `json:"botThreshold,omitempty" toml:"bot_threshold"`
}

// OverrideField names one overridable weight and addresses its slot.
type OverrideField struct {
	Name string
	Slot **float64
}

// Fields lists every overridable weight by its snake_case name.
func (o *Overrides) Fields() []OverrideField {
	return []OverrideField{
		{"follower_following_ratio", &o.FollowerFollowingRatio},
		{"is_private", &o.IsPrivate},
		{"is_verified", &o.IsVerified},
		{"has_biography", &o.HasBiography},
		{"has_external_url", &o.HasExternalURL},
		{"media_count", &o.MediaCount},
		{"has_stories", &o.HasStories},
		{"has_highlights", &o.HasHighlights},
		{"username_pattern", &o.UsernamePattern},
		{"full_name_pattern", &o.FullNamePattern},
		{"follower_count", &o.FollowerCount},
		{"following_count", &o.FollowingCount},
		{"account_age", &o.AccountAge},
		{"has_chaining", &o.HasChaining},
		{"is_business", &o.IsBusiness},
		{"num_of_admined_pages", &o.NumOfAdminedPages},
		{"has_highlight_reels", &o.HasHighlightReels},
		{"bot_threshold", &o.BotThreshold},
	}
}

// Merge copies every set field of overlay onto o.
func (o *Overrides) Merge(overlay *Overrides) {
	if overlay == nil {
		return
	}
	dst := o.Fields()
	for i, f := range overlay.Fields() {
		if *f.Slot != nil {
			v := **f.Slot
			*dst[i].Slot = &v
		}
	}
}

// Apply returns base with every set override substituted.
func (o *Overrides) Apply(base Weights) Weights {
	if o == nil {
		return base
	}

	w := base
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	set(&w.FollowerFollowingRatio, o.FollowerFollowingRatio)
	set(&w.IsPrivate, o.IsPrivate)
	set(&w.IsVerified, o.IsVerified)
	set(&w.HasBiography, o.HasBiography)
	set(&w.HasExternalURL, o.HasExternalURL)
	set(&w.MediaCount, o.MediaCount)
	set(&w.HasStories, o.HasStories)
	set(&w.HasHighlights, o.HasHighlights)
	set(&w.UsernamePattern, o.UsernamePattern)
	set(&w.FullNamePattern, o.FullNamePattern)
	set(&w.FollowerCount, o.FollowerCount)
	set(&w.FollowingCount, o.FollowingCount)
	set(&w.AccountAge, o.AccountAge)
	set(&w.HasChaining, o.HasChaining)
	set(&w.IsBusiness, o.IsBusiness)
	set(&w.NumOfAdminedPages, o.NumOfAdminedPages)
	set(&w.HasHighlightReels, o.HasHighlightReels)
	set(&w.BotThreshold, o.BotThreshold)

	return w
}
