package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/jmoiron/sqlx"
)

var _ domain.ScoreRepository = (*PostgresScoreRepository)(nil)

type PostgresScoreRepository struct {
	db *sqlx.DB
}

func NewPostgresScoreRepository(db *sqlx.DB) *PostgresScoreRepository {
	return &PostgresScoreRepository{db: db}
}

func (r *PostgresScoreRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.DailyScore, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT user_id, score_date, total_possible_points, earned_points, percentage_score, updated_at
        FROM daily_scores
        WHERE user_id = $1 AND score_date BETWEEN $2 AND $3
        ORDER BY score_date ASC`

	scores := []*domain.DailyScore{}
	if err := r.db.SelectContext(ctx, &scores, query, userID, domain.DateOnly(from), domain.DateOnly(to)); err != nil {
		return nil, fmt.Errorf("list daily scores failed: %w", err)
	}
	return scores, nil
}
