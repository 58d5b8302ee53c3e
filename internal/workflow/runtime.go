package workflow

import (
	"context"
	"io"
	"log/slog"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/internal/scoring"
)

// Fetcher retrieves the likers of a post. An empty roster is a valid result.
type Fetcher interface {
	Fetch(ctx context.Context, postURL string) ([]profiles.Profile, error)
}

// Enricher reads the roster document at src and writes an enriched roster
// document at dst. On failure dst is left absent.
type Enricher interface {
	Enrich(ctx context.Context, src, dst string) error
}

// Archive mirrors post artifacts into blob storage.
type Archive interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Recorder persists the summary of an analysis together with the weights that produced it.
type Recorder interface {
	Record(ctx context.Context, a *analysis.Analysis, w scoring.Weights) error
}

// Runtime bundles the dependencies that pipeline stages require.
// It is constructed by higher-level composition code from configuration and
// infrastructure. Enricher, Archive, and Reports are optional; a nil value
// skips the corresponding stage.
type Runtime struct {
	OutputDir string
	Weights   scoring.Weights
	Workers   int
	Fetcher   Fetcher
	Enricher  Enricher
	Archive   Archive
	Reports   Recorder
	Logger    *slog.Logger
}

// WithWeights returns a copy of the runtime that scores with w.
func (rt *Runtime) WithWeights(w scoring.Weights) *Runtime {
	c := *rt
	c.Weights = w
	return &c
}

func (rt *Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return rt.Logger
}
