package posts

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/internal/workflow"
	"github.com/JaimeStill/botwatch/pkg/formatting"
	"github.com/JaimeStill/botwatch/pkg/storage"
)

var postIDPattern = regexp.MustCompile(`^\d+_\d+$`)

var artifacts = []string{profiles.RawFile, profiles.EnrichedFile, analysis.FileName}

type catalog struct {
	rt      *workflow.Runtime
	blobs   Blobs
	logger  *slog.Logger
	ranking sync.Mutex
}

// New creates a post catalog over rt's output root. blobs may be nil when
// archiving is disabled.
func New(rt *workflow.Runtime, blobs Blobs, logger *slog.Logger) System {
	return &catalog{
		rt:     rt,
		blobs:  blobs,
		logger: logger.With("system", "posts"),
	}
}

func (c *catalog) Handler(maxBodySize int64) *Handler {
	return NewHandler(c, c.logger, maxBodySize)
}

func (c *catalog) List(ctx context.Context) ([]Summary, error) {
	dirs, err := workflow.PostDirs(c.rt.OutputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("list posts: %w", err)
	}

	out := make([]Summary, 0, len(dirs))
	for _, name := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(c.rt.OutputDir, name, analysis.FileName)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		a, err := analysis.Read(path)
		if err != nil {
			c.logger.Debug("skipping unreadable analysis", "path", path, "error", err)
			continue
		}

		out = append(out, Summary{
			PostID:   strings.TrimPrefix(name, "post-"),
			FileName: analysis.FileName,
			Modified: info.ModTime().UTC(),
			Analysis: a,
		})
	}

	slices.SortStableFunc(out, func(a, b Summary) int {
		return cmp.Or(
			b.Analysis.Timestamp.Compare(a.Analysis.Timestamp),
			cmp.Compare(a.PostID, b.PostID),
		)
	})

	return out, nil
}

func (c *catalog) Stats(ctx context.Context) (*Stats, error) {
	list, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	s := &Stats{TotalPosts: len(list), AvgBotPercentage: "0.00"}
	if len(list) == 0 {
		return s, nil
	}

	var (
		sum     float64
		counted int
	)
	for _, p := range list {
		s.TotalUsers += p.Analysis.TotalUsers
		s.TotalBots += p.Analysis.TotalPossibleBots

		pct, err := strconv.ParseFloat(p.Analysis.BotPercentage, 64)
		if err != nil {
			c.logger.Warn("unparseable bot percentage", "post_id", p.PostID, "value", p.Analysis.BotPercentage)
			continue
		}
		sum += pct
		counted++
	}

	if counted > 0 {
		s.AvgBotPercentage = formatting.Fixed(sum/float64(counted), 2)
	}
	return s, nil
}

func (c *catalog) Open(ctx context.Context, postID, file string) (io.ReadCloser, error) {
	if !postIDPattern.MatchString(postID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPost, postID)
	}
	if !slices.Contains(artifacts, file) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFile, file)
	}

	f, err := os.Open(filepath.Join(c.rt.OutputDir, workflow.PostDir(postID), file))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}

	if c.blobs == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, postID, file)
	}

	rc, err := c.blobs.Download(ctx, workflow.ArchiveKey(postID, file))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, postID, file)
		}
		return nil, err
	}

	c.logger.Debug("serving archived copy", "post_id", postID, "file", file)
	return rc, nil
}

func (c *catalog) Weights() scoring.Weights {
	return c.rt.Weights
}

func (c *catalog) Rank(ctx context.Context, overrides *scoring.Overrides) (*workflow.Summary, error) {
	w := overrides.Apply(c.rt.Weights)
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWeights, err)
	}

	if !c.ranking.TryLock() {
		return nil, ErrRankInProgress
	}
	defer c.ranking.Unlock()

	return workflow.RankAll(ctx, c.rt.WithWeights(w))
}
