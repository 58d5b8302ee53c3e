// Package reports implements the report catalog: one row per analyzed post
// holding the aggregate verdict and the weights that produced it.
package reports

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is the recorded summary of one post's analysis.
type Report struct {
	ID            uuid.UUID       `json:"id"`
	PostID        string          `json:"post_id"`
	TotalUsers    int             `json:"total_users"`
	TotalBots     int             `json:"total_bots"`
	BotPercentage float64         `json:"bot_percentage"`
	AverageScore  float64         `json:"average_score"`
	BotThreshold  float64         `json:"bot_threshold"`
	Weights       json.RawMessage `json:"weights"`
	AnalyzedAt    time.Time       `json:"analyzed_at"`
	RecordedAt    time.Time       `json:"recorded_at"`
}
