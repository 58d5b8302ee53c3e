package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var postIDPattern = regexp.MustCompile(`/media/(\d+_\d+)`)

// ExtractPostID derives the post identifier from a post url by taking the
// <digits>_<digits> token that follows a /media/ path segment.
func ExtractPostID(postURL string) (string, error) {
	m := postIDPattern.FindStringSubmatch(postURL)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPostURL, postURL)
	}
	return m[1], nil
}

// PostDir returns the name of a post's working directory under the output root.
func PostDir(postID string) string {
	return "post-" + postID
}

// Run processes urls sequentially, one post fully before the next. Per-post
// failures are recorded in the summary and never stop the batch. The batch
// only fails outright when the output root cannot be created, which happens
// before any post runs. Cancellation is observed between posts; posts that
// did not start are reported as canceled and the context error is returned
// alongside the summary.
func Run(ctx context.Context, rt *Runtime, urls []string) (*Summary, error) {
	logger := rt.logger()
	summary := newSummary()
	defer summary.complete()

	if rt.Fetcher == nil {
		return summary, ErrNoFetcher
	}

	if err := os.MkdirAll(rt.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("%w: %w", ErrOutputRoot, err)
	}

	logger.InfoContext(
		ctx, "starting batch",
		"run_id", summary.RunID,
		"posts", len(urls),
		"output_dir", rt.OutputDir,
	)

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			for _, rest := range urls[i:] {
				summary.add(Result{URL: rest, Stage: StageInit, Reached: StageInit, Outcome: OutcomeCanceled})
			}
			logger.WarnContext(ctx, "batch canceled", "remaining", len(urls)-i)
			return summary, err
		}

		summary.add(Execute(ctx, rt, u))
	}

	logger.InfoContext(
		ctx, "batch complete",
		"run_id", summary.RunID,
		"done", summary.Done,
		"empty", summary.Empty,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)

	return summary, nil
}

// Execute drives a single post through every stage. It never returns an
// error; failures are reported on the Result with Outcome set to
// OutcomeFailed and Reached set to the last completed stage.
func Execute(ctx context.Context, rt *Runtime, postURL string) Result {
	p := &post{
		rt:      rt,
		url:     postURL,
		stage:   StageInit,
		reached: StageInit,
		start:   time.Now(),
	}

	r := p.run(ctx)
	r.Duration = time.Since(p.start)

	logger := rt.logger()
	switch r.Outcome {
	case OutcomeFailed:
		logger.ErrorContext(ctx, "post failed", append(r.logAttrs(), "error", r.Err)...)
	case OutcomeSkipped:
		logger.WarnContext(ctx, "post skipped", "url", postURL, "error", r.Err)
	default:
		logger.InfoContext(ctx, "post finished", r.logAttrs()...)
	}

	return r
}

type post struct {
	rt      *Runtime
	url     string
	id      string
	dir     string
	stage   Stage
	reached Stage
	start   time.Time

	// relocated is set when organize moved an enriched roster into dir
	// during this run.
	relocated bool
}

func (p *post) run(ctx context.Context) Result {
	r := Result{URL: p.url}

	id, err := ExtractPostID(p.url)
	if err != nil {
		r.Stage, r.Reached, r.Outcome, r.Err = StageInit, StageInit, OutcomeSkipped, err
		return r
	}
	p.id = id
	r.PostID = id

	if err := p.step(ctx, StageDirectoryReady, p.prepareDirectory); err != nil {
		return p.fail(r, err)
	}

	users, err := p.fetch(ctx)
	if len(users) == 0 {
		p.advance(ctx, StageFetched)
		r.Stage, r.Reached, r.Outcome, r.Err = StageDone, p.reached, OutcomeEmpty, err
		return r
	}
	p.advance(ctx, StageFetched)

	if err := p.step(ctx, StagePersisted, func(context.Context) error { return p.persist(users) }); err != nil {
		return p.fail(r, err)
	}

	p.organize(ctx)
	p.advance(ctx, StageOrganized)

	if p.enrich(ctx) {
		p.advance(ctx, StageEnriched)
	}

	var result *AnalyzeResult
	err = p.step(ctx, StageAnalyzed, func(ctx context.Context) error {
		var err error
		result, err = AnalyzeDirectory(ctx, p.rt, p.dir)
		return err
	})
	if err != nil {
		return p.fail(r, err)
	}
	r.RosterFile = result.RosterFile
	r.Users = result.Analysis.TotalUsers
	r.Bots = result.Analysis.TotalPossibleBots
	r.BotPercentage = result.Analysis.BotPercentage

	if p.rt.Archive != nil {
		if err := p.step(ctx, StageArchived, p.archive); err != nil {
			return p.fail(r, err)
		}
	}

	if p.rt.Reports != nil {
		err := p.step(ctx, StageRecorded, func(ctx context.Context) error {
			return record(ctx, p.rt, result.Analysis)
		})
		if err != nil {
			return p.fail(r, err)
		}
	}

	p.advance(ctx, StageDone)
	r.Stage, r.Reached, r.Outcome = StageDone, StageDone, OutcomeDone
	return r
}

func (p *post) step(ctx context.Context, next Stage, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	stageDuration.WithLabelValues(string(next)).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	p.advance(ctx, next)
	return nil
}

func (p *post) advance(ctx context.Context, next Stage) {
	if !p.stage.Before(next) {
		return
	}
	p.rt.logger().DebugContext(ctx, "stage transition", "post_id", p.id, "from", p.stage, "to", next)
	p.stage = next
	p.reached = next
}

func (p *post) fail(r Result, err error) Result {
	p.stage = StageFailed
	r.Stage, r.Reached, r.Outcome, r.Err = StageFailed, p.reached, OutcomeFailed, err
	return r
}

func (p *post) path(name string) string {
	return filepath.Join(p.dir, name)
}
