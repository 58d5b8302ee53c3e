// Package posts serves the per-post artifacts under the pipeline output
// root: analysis listings, aggregate statistics, raw file access, and
// on-demand re-ranking with adjusted weights.
package posts

import (
	"time"

	"github.com/JaimeStill/botwatch/internal/analysis"
)

// Summary is one post's analysis as listed by the catalog.
type Summary struct {
	PostID   string             `json:"postId"`
	FileName string             `json:"fileName"`
	Modified time.Time          `json:"modified"`
	Analysis *analysis.Analysis `json:"analysis"`
}

// Stats aggregates every listed analysis. AvgBotPercentage is the mean of
// the per-post percentages formatted to two decimals.
type Stats struct {
	TotalPosts       int    `json:"totalPosts"`
	TotalUsers       int    `json:"totalUsers"`
	TotalBots        int    `json:"totalBots"`
	AvgBotPercentage string `json:"avgBotPercentage"`
}
