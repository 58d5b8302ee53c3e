package posts

import (
	"context"
	"io"

	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/internal/workflow"
)

// Blobs reads archived post artifacts.
type Blobs interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// System defines the public contract for post artifact operations.
type System interface {
	Handler(maxBodySize int64) *Handler

	List(ctx context.Context) ([]Summary, error)
	Stats(ctx context.Context) (*Stats, error)

	// Open returns one artifact of a post. When the file is not present
	// locally the archived copy is used, if an archive is configured.
	Open(ctx context.Context, postID, file string) (io.ReadCloser, error)

	Weights() scoring.Weights

	// Rank re-analyzes every post directory with overrides applied over the
	// configured weights. Only one pass runs at a time.
	Rank(ctx context.Context, overrides *scoring.Overrides) (*workflow.Summary, error)
}
