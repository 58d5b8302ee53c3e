package reports

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/pkg/pagination"
)

// System defines the public contract for report catalog operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Report], error)

	Find(ctx context.Context, id uuid.UUID) (*Report, error)
	FindByPost(ctx context.Context, postID string) (*Report, error)

	// Record upserts the report for a's post. A later analysis of the same
	// post replaces the earlier one.
	Record(ctx context.Context, a *analysis.Analysis, w scoring.Weights) error
	Delete(ctx context.Context, id uuid.UUID) error
}
