// Package analysis scores every liker of a post and summarizes the result
// into the persisted analysis document.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/pkg/formatting"
	"github.com/JaimeStill/botwatch/pkg/jsonfile"
)

// FileName is the analysis document's name inside a post directory.
const FileName = "users.analysis.json"

// Analysis is the scored summary of one post's likers.
type Analysis struct {
	Timestamp         time.Time            `json:"timestamp"`
	PostID            string               `json:"postId"`
	TotalUsers        int                  `json:"totalUsers"`
	TotalPossibleBots int                  `json:"totalPossibleBots"`
	BotPercentage     string               `json:"botPercentage"`
	AverageScore      string               `json:"averageScore"`
	PossibleBots      []scoring.ScoredUser `json:"possibleBots"`
	AllUsers          []scoring.ScoredUser `json:"allUsers"`
}

// Document is the on-disk envelope of an Analysis.
type Document struct {
	Analysis *Analysis `json:"analysis"`
}

type options struct {
	workers int
}

// Option configures Analyze.
type Option func(*options)

// WithWorkers bounds how many profiles are scored concurrently.
// Values below one fall back to the number of CPUs.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Analyze scores users with w and summarizes them under postID.
// Output order matches the roster order regardless of scoring concurrency.
func Analyze(
	ctx context.Context,
	postID string,
	users []profiles.Profile,
	w scoring.Weights,
	opts ...Option,
) (*Analysis, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	scored := make([]scoring.ScoredUser, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(o.workers, len(users)))

	for i, u := range users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			scored[i] = scoring.Evaluate(u, w)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score %s: %w", postID, err)
	}

	return Summarize(postID, scored), nil
}

// Summarize aggregates already scored users into an Analysis stamped now.
func Summarize(postID string, scored []scoring.ScoredUser) *Analysis {
	if scored == nil {
		scored = []scoring.ScoredUser{}
	}

	bots := make([]scoring.ScoredUser, 0)
	var sum float64
	for _, u := range scored {
		if u.IsBot {
			bots = append(bots, u)
		}
		sum += u.BotScore
	}

	total := len(scored)
	percentage, average := "0.00", "0.000"
	if total > 0 {
		percentage = formatting.Fixed(float64(len(bots))/float64(total)*100, 2)
		average = formatting.Fixed(sum/float64(total), scoring.ScorePrecision)
	}

	return &Analysis{
		Timestamp:         time.Now().UTC(),
		PostID:            postID,
		TotalUsers:        total,
		TotalPossibleBots: len(bots),
		BotPercentage:     percentage,
		AverageScore:      average,
		PossibleBots:      bots,
		AllUsers:          scored,
	}
}

// AnalyzeFile reads the roster document at path and analyzes it under the
// roster's own post id. Any read or decode failure aborts the analysis with
// ErrRosterUnreadable; nothing is returned for a partially readable roster.
func AnalyzeFile(ctx context.Context, path string, w scoring.Weights, opts ...Option) (*Analysis, error) {
	roster, err := profiles.ReadRoster(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRosterUnreadable, err)
	}
	return Analyze(ctx, roster.PostID, roster.Users, w, opts...)
}

// Write persists a as the analysis document at path, replacing any previous one.
func Write(path string, a *Analysis) error {
	if a == nil {
		return errors.New("analysis is nil")
	}
	return jsonfile.Write(path, Document{Analysis: a})
}

// Read loads the analysis document at path.
func Read(path string) (*Analysis, error) {
	doc, err := jsonfile.Read[Document](path)
	if err != nil {
		if errors.Is(err, jsonfile.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedAnalysis, err)
	}
	if doc.Analysis == nil {
		return nil, fmt.Errorf("%w: %s has no analysis", ErrMalformedAnalysis, path)
	}
	return doc.Analysis, nil
}

func workerCount(configured, users int) int {
	if configured < 1 {
		configured = runtime.NumCPU()
	}
	return max(min(configured, users), 1)
}
