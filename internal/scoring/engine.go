package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/pkg/formatting"
)

// ScorePrecision is the number of decimals a bot score is rounded to.
const ScorePrecision = 3

// Score computes the weighted bot score of p, rounded to ScorePrecision decimals.
// Terms are summed in a fixed order so the result is reproducible bit for bit.
func Score(p profiles.Profile, w Weights) float64 {
	var score float64

	score = add(score, FollowerFollowingRatioScore(p.FollowerCount, p.FollowingCount), w.FollowerFollowingRatio)
	score = add(score, flag(p.IsPrivate), w.IsPrivate)
	score = add(score, flag(p.IsVerified), w.IsVerified)
	score = add(score, flag(p.HasBiography), w.HasBiography)
	score = add(score, flag(p.HasExternalURL), w.HasExternalURL)
	score = add(score, normalize(p.MediaCount, 100), w.MediaCount)
	score = add(score, flag(p.HasStories), w.HasStories)
	score = add(score, flag(p.HasHighlights), w.HasHighlights)
	score = add(score, UsernamePatternScore(p.Username), w.UsernamePattern)
	score = add(score, DisplayNamePatternScore(p.FullName), w.FullNamePattern)
	score = add(score, normalize(p.FollowerCount, 1000), w.FollowerCount)
	score = add(score, normalize(p.FollowingCount, 1000), w.FollowingCount)
	score = add(score, AccountAgeEstimate(p), w.AccountAge)
	score = add(score, flag(p.HasChaining), w.HasChaining)
	score = add(score, flag(p.IsBusiness), w.IsBusiness)
	score = add(score, normalize(p.NumAdminedPages, 5), w.NumOfAdminedPages)
	score = add(score, flag(p.HasHighlightReels), w.HasHighlightReels)

	return formatting.Round(score, ScorePrecision)
}

// Classify reports whether p scores strictly above the bot threshold.
func Classify(p profiles.Profile, w Weights) bool {
	return Score(p, w) > w.BotThreshold
}

// Evaluate scores and classifies p in one pass.
func Evaluate(p profiles.Profile, w Weights) ScoredUser {
	s := Score(p, w)
	return ScoredUser{
		Profile:  p,
		BotScore: s,
		IsBot:    s > w.BotThreshold,
	}
}

// ScoredUser is a profile with its bot score and verdict. It serializes as
// the profile's own fields plus botScore and isBot.
type ScoredUser struct {
	Profile  profiles.Profile
	BotScore float64
	IsBot    bool
}

func (u ScoredUser) MarshalJSON() ([]byte, error) {
	fields, err := u.Profile.Fields()
	if err != nil {
		return nil, err
	}

	score, err := json.Marshal(u.BotScore)
	if err != nil {
		return nil, fmt.Errorf("botScore: %w", err)
	}

	fields["botScore"] = score
	fields["isBot"] = json.RawMessage(fmt.Sprintf("%t", u.IsBot))

	return json.Marshal(fields)
}

func (u *ScoredUser) UnmarshalJSON(data []byte) error {
	var verdict struct {
		BotScore float64 `json:"botScore"`
		IsBot    bool    `json:"isBot"`
	}
	if err := json.Unmarshal(data, &verdict); err != nil {
		return err
	}

	var p profiles.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	delete(p.Extra, "botScore")
	delete(p.Extra, "isBot")
	if len(p.Extra) == 0 {
		p.Extra = nil
	}

	*u = ScoredUser{Profile: p, BotScore: verdict.BotScore, IsBot: verdict.IsBot}
	return nil
}

// add returns score + x*w. The explicit conversion rounds the product before
// the addition so it is never fused into a single multiply-add.
func add(score, x, w float64) float64 {
	return score + float64(x*w)
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func normalize(n int, ceiling float64) float64 {
	if n == 0 {
		return 0
	}
	return min(float64(n)/ceiling, 1)
}
