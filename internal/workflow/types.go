package workflow

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Stage is a step of per-post processing. Stages run strictly in order;
// StageFailed is absorbing.
type Stage string

// Pipeline stages in execution order.
const (
	StageInit           Stage = "init"
	StageDirectoryReady Stage = "directory_ready"
	StageFetched        Stage = "fetched"
	StagePersisted      Stage = "persisted"
	StageOrganized      Stage = "organized"
	StageEnriched       Stage = "enriched"
	StageAnalyzed       Stage = "analyzed"
	StageArchived       Stage = "archived"
	StageRecorded       Stage = "recorded"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

var stageOrder = map[Stage]int{
	StageInit:           0,
	StageDirectoryReady: 1,
	StageFetched:        2,
	StagePersisted:      3,
	StageOrganized:      4,
	StageEnriched:       5,
	StageAnalyzed:       6,
	StageArchived:       7,
	StageRecorded:       8,
	StageDone:           9,
}

// Before reports whether s precedes next in the pipeline.
// StageFailed precedes nothing.
func (s Stage) Before(next Stage) bool {
	a, ok := stageOrder[s]
	if !ok {
		return false
	}
	b, ok := stageOrder[next]
	if !ok {
		return false
	}
	return a < b
}

// Outcome is how a post's traversal of the pipeline ended.
type Outcome string

// Post outcomes.
const (
	// OutcomeDone means every configured stage completed.
	OutcomeDone Outcome = "done"
	// OutcomeEmpty means the upstream returned no likers (or could not be read).
	OutcomeEmpty Outcome = "empty"
	// OutcomeSkipped means no post id could be derived from the url.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means a stage failed after the post directory was ready.
	OutcomeFailed Outcome = "failed"
	// OutcomeCanceled means the batch was aborted before the post ran.
	OutcomeCanceled Outcome = "canceled"
)

// Result reports one post's traversal of the pipeline. Stage is the state the
// post ended in; Reached is the last stage it completed.
type Result struct {
	URL           string        `json:"url,omitempty"`
	PostID        string        `json:"postId,omitempty"`
	Stage         Stage         `json:"stage"`
	Reached       Stage         `json:"reached"`
	Outcome       Outcome       `json:"outcome"`
	RosterFile    string        `json:"rosterFile,omitempty"`
	Users         int           `json:"users"`
	Bots          int           `json:"bots"`
	BotPercentage string        `json:"botPercentage,omitempty"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`

	Err error `json:"-"`
}

// Summary aggregates the results of a batch run or rank pass.
type Summary struct {
	RunID       uuid.UUID `json:"runId"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	Results     []Result  `json:"results"`
	Done        int       `json:"done"`
	Empty       int       `json:"empty"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Canceled    int       `json:"canceled"`
}

func newSummary() *Summary {
	return &Summary{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Results:   []Result{},
	}
}

func (s *Summary) add(r Result) {
	if r.Err != nil && r.Error == "" {
		r.Error = r.Err.Error()
	}

	s.Results = append(s.Results, r)

	switch r.Outcome {
	case OutcomeDone:
		s.Done++
	case OutcomeEmpty:
		s.Empty++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	case OutcomeCanceled:
		s.Canceled++
	}

	postsProcessed.WithLabelValues(string(r.Outcome)).Inc()
}

func (s *Summary) complete() {
	s.CompletedAt = time.Now().UTC()
}

// Total is the number of posts the summary covers.
func (s *Summary) Total() int {
	return len(s.Results)
}

// Print writes a human-readable report of the run to w: one line per post
// followed by the totals.
func (s *Summary) Print(w io.Writer) {
	for _, r := range s.Results {
		switch r.Outcome {
		case OutcomeDone:
			fmt.Fprintf(w, "  %-24s done     users=%d bots=%d (%s%%)\n", r.PostID, r.Users, r.Bots, r.BotPercentage)
		case OutcomeFailed:
			fmt.Fprintf(w, "  %-24s failed   at %s: %s\n", r.PostID, r.Reached, r.Error)
		case OutcomeEmpty:
			fmt.Fprintf(w, "  %-24s empty\n", r.PostID)
		case OutcomeSkipped:
			fmt.Fprintf(w, "  %-24s skipped  %s\n", r.URL, r.Error)
		case OutcomeCanceled:
			fmt.Fprintf(w, "  %-24s canceled\n", r.URL)
		}
	}

	elapsed := s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(
		w,
		"run %s: %d posts in %s: %d done, %d empty, %d skipped, %d failed, %d canceled\n",
		s.RunID, s.Total(), elapsed, s.Done, s.Empty, s.Skipped, s.Failed, s.Canceled,
	)
}

func (r Result) logAttrs() []any {
	return []any{
		"post_id", r.PostID,
		"outcome", r.Outcome,
		"reached", r.Reached,
		"users", r.Users,
		"bots", r.Bots,
		"duration", r.Duration,
	}
}
