package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/pkg/pagination"
	"github.com/JaimeStill/botwatch/pkg/query"
	"github.com/JaimeStill/botwatch/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a report repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "reports"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Report], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "PostID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanReport)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Report, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rep, err := repository.QueryOne(ctx, r.db, q, args, scanReport)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rep, nil
}

func (r *repo) FindByPost(ctx context.Context, postID string) (*Report, error) {
	q, args := query.NewBuilder(projection).BuildSingle("PostID", postID)

	rep, err := repository.QueryOne(ctx, r.db, q, args, scanReport)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rep, nil
}

func (r *repo) Record(ctx context.Context, a *analysis.Analysis, w scoring.Weights) error {
	if a == nil || a.PostID == "" {
		return fmt.Errorf("%w: missing post id", ErrInvalidAnalysis)
	}

	pct, err := strconv.ParseFloat(a.BotPercentage, 64)
	if err != nil {
		return fmt.Errorf("%w: bot percentage %q", ErrInvalidAnalysis, a.BotPercentage)
	}
	avg, err := strconv.ParseFloat(a.AverageScore, 64)
	if err != nil {
		return fmt.Errorf("%w: average score %q", ErrInvalidAnalysis, a.AverageScore)
	}

	weights, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}

	upsertQ := `
		INSERT INTO reports(
			id, post_id, total_users, total_bots, bot_percentage,
			average_score, bot_threshold, weights, analyzed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (post_id) DO UPDATE SET
			total_users = EXCLUDED.total_users,
			total_bots = EXCLUDED.total_bots,
			bot_percentage = EXCLUDED.bot_percentage,
			average_score = EXCLUDED.average_score,
			bot_threshold = EXCLUDED.bot_threshold,
			weights = EXCLUDED.weights,
			analyzed_at = EXCLUDED.analyzed_at,
			recorded_at = NOW()
		RETURNING ` + columns

	upsertArgs := []any{
		uuid.New(),
		a.PostID,
		a.TotalUsers,
		a.TotalPossibleBots,
		pct,
		avg,
		w.BotThreshold,
		string(weights),
		a.Timestamp,
	}

	rep, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Report, error) {
		return repository.QueryOne(ctx, tx, upsertQ, upsertArgs, scanReport)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("report recorded",
		"id", rep.ID,
		"post_id", rep.PostID,
		"total_bots", rep.TotalBots,
		"bot_percentage", rep.BotPercentage,
	)
	return nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM reports WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("report deleted", "id", id)
	return nil
}
