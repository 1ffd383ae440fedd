package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"example.com/walklog/internal/observability"
)

// BadgeEvaluator awards badges through the check_and_award_badges database function.
type BadgeEvaluator struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewBadgeEvaluator constructs a BadgeEvaluator.
func NewBadgeEvaluator(pool *pgxpool.Pool, logger *zap.Logger) *BadgeEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeEvaluator{pool: pool, logger: logger}
}

// Evaluate runs badge evaluation for userID. Failures are logged and swallowed.
func (b *BadgeEvaluator) Evaluate(ctx context.Context, userID string) {
	if _, err := b.pool.Exec(ctx, `SELECT check_and_award_badges($1)`, userID); err != nil {
		observability.RecordBadgeEvaluation(err)
		b.logger.Warn("badge evaluation failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	observability.RecordBadgeEvaluation(nil)
}
