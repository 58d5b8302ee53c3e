package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/pkg/jsonfile"
)

// AnalyzeResult is the outcome of analyzing one post directory.
type AnalyzeResult struct {
	Analysis   *analysis.Analysis
	RosterFile string
}

// RosterPath returns the roster a post directory should be analyzed from:
// the enriched roster when present, otherwise the raw roster.
func RosterPath(dir string) (string, error) {
	for _, name := range []string{profiles.EnrichedFile, profiles.RawFile} {
		p := filepath.Join(dir, name)
		if jsonfile.Exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingRoster, dir)
}

// AnalyzeDirectory scores the roster found in dir with the runtime's weights
// and writes the analysis document next to it, replacing any previous one.
func AnalyzeDirectory(ctx context.Context, rt *Runtime, dir string) (*AnalyzeResult, error) {
	src, err := RosterPath(dir)
	if err != nil {
		return nil, err
	}

	a, err := analysis.AnalyzeFile(ctx, src, rt.Weights, analysis.WithWorkers(rt.Workers))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalyzeFailed, err)
	}

	if err := analysis.Write(filepath.Join(dir, analysis.FileName), a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalyzeFailed, err)
	}

	usersScored.Add(float64(a.TotalUsers))
	botsFlagged.Add(float64(a.TotalPossibleBots))

	rt.logger().InfoContext(
		ctx, "analysis complete",
		"post_id", a.PostID,
		"roster", filepath.Base(src),
		"users", a.TotalUsers,
		"bots", a.TotalPossibleBots,
		"bot_percentage", a.BotPercentage,
		"average_score", a.AverageScore,
	)

	return &AnalyzeResult{Analysis: a, RosterFile: filepath.Base(src)}, nil
}

// PostDirs lists the post directories under the output root in name order.
func PostDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "post-") {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

// RankAll re-analyzes every post directory under the output root with the
// runtime's weights. When a recorder is configured each analysis is recorded
// again. A directory that fails is reported and the pass moves on.
func RankAll(ctx context.Context, rt *Runtime) (*Summary, error) {
	logger := rt.logger()
	summary := newSummary()
	defer summary.complete()

	dirs, err := PostDirs(rt.OutputDir)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrOutputRoot, err)
	}

	logger.InfoContext(ctx, "starting rank pass", "run_id", summary.RunID, "posts", len(dirs))

	for i, name := range dirs {
		postID := strings.TrimPrefix(name, "post-")

		if err := ctx.Err(); err != nil {
			for _, rest := range dirs[i:] {
				summary.add(Result{
					PostID:  strings.TrimPrefix(rest, "post-"),
					Stage:   StageOrganized,
					Reached: StageOrganized,
					Outcome: OutcomeCanceled,
				})
			}
			return summary, err
		}

		summary.add(rankDirectory(ctx, rt, postID, filepath.Join(rt.OutputDir, name)))
	}

	logger.InfoContext(
		ctx, "rank pass complete",
		"run_id", summary.RunID,
		"done", summary.Done,
		"failed", summary.Failed,
	)

	return summary, nil
}

func rankDirectory(ctx context.Context, rt *Runtime, postID, dir string) Result {
	start := time.Now()
	r := Result{PostID: postID, Stage: StageOrganized, Reached: StageOrganized}

	fail := func(err error) Result {
		r.Stage, r.Outcome, r.Err = StageFailed, OutcomeFailed, err
		r.Duration = time.Since(start)
		rt.logger().ErrorContext(ctx, "rank failed", append(r.logAttrs(), "error", err)...)
		return r
	}

	result, err := AnalyzeDirectory(ctx, rt, dir)
	if err != nil {
		return fail(err)
	}
	r.Reached = StageAnalyzed
	r.RosterFile = result.RosterFile
	r.Users = result.Analysis.TotalUsers
	r.Bots = result.Analysis.TotalPossibleBots
	r.BotPercentage = result.Analysis.BotPercentage

	if rt.Reports != nil {
		if err := record(ctx, rt, result.Analysis); err != nil {
			return fail(err)
		}
		r.Reached = StageRecorded
	}

	r.Stage, r.Outcome = StageDone, OutcomeDone
	r.Duration = time.Since(start)
	return r
}
