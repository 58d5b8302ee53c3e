package reports

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/botwatch/pkg/query"
	"github.com/JaimeStill/botwatch/pkg/repository"
)

const columns = `id, post_id, total_users, total_bots, bot_percentage, average_score,
		bot_threshold, weights, analyzed_at, recorded_at`

var projection = query.
	NewProjectionMap("public", "reports", "r").
	Project("id", "ID").
	Project("post_id", "PostID").
	Project("total_users", "TotalUsers").
	Project("total_bots", "TotalBots").
	Project("bot_percentage", "BotPercentage").
	Project("average_score", "AverageScore").
	Project("bot_threshold", "BotThreshold").
	Project("weights", "Weights").
	Project("analyzed_at", "AnalyzedAt").
	Project("recorded_at", "RecordedAt")

var defaultSort = query.SortField{
	Field:      "AnalyzedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for report queries.
// PostID uses case-insensitive contains matching. MinBotPercentage and
// MinBots are inclusive lower bounds.
type Filters struct {
	PostID           *string  `json:"post_id,omitempty"`
	MinBotPercentage *float64 `json:"min_bot_percentage,omitempty"`
	MinBots          *int     `json:"min_bots,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("PostID", f.PostID).
		WhereAtLeast("BotPercentage", f.MinBotPercentage).
		WhereAtLeast("TotalBots", f.MinBots)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("post_id"); p != "" {
		f.PostID = &p
	}

	if v := values.Get("min_bot_percentage"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinBotPercentage = &n
		}
	}

	if v := values.Get("min_bots"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MinBots = &n
		}
	}

	return f
}

func scanReport(s repository.Scanner) (Report, error) {
	var (
		r       Report
		weights []byte
	)
	err := s.Scan(
		&r.ID,
		&r.PostID,
		&r.TotalUsers,
		&r.TotalBots,
		&r.BotPercentage,
		&r.AverageScore,
		&r.BotThreshold,
		&weights,
		&r.AnalyzedAt,
		&r.RecordedAt,
	)
	r.Weights = weights
	return r, err
}
