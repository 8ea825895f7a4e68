package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/jmoiron/sqlx"
)

var _ domain.StatsRepository = (*PostgresStatsRepository)(nil)

type PostgresStatsRepository struct {
	db *sqlx.DB
}

func NewPostgresStatsRepository(db *sqlx.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

func (r *PostgresStatsRepository) GetStats(ctx context.Context, userID string) (*domain.ProfileStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var st domain.ProfileStats
	err := r.db.GetContext(ctx, &st, `SELECT user_id, wins, losses, updated_at FROM profile_stats WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.ProfileStats{UserID: userID}, nil
		}
		return nil, fmt.Errorf("get stats failed: %w", err)
	}
	return &st, nil
}

func (r *PostgresStatsRepository) TopByWins(ctx context.Context, excludingUserID string, limit int) ([]*domain.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT u.id AS user_id, u.username, u.display_name,
               COALESCE(s.wins, 0) AS wins, COALESCE(s.losses, 0) AS losses
        FROM users u
        LEFT JOIN profile_stats s ON s.user_id = u.id
        WHERE u.id <> $1
        ORDER BY wins DESC, u.id ASC
        LIMIT $2`

	entries := []*domain.LeaderboardEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, excludingUserID, limit); err != nil {
		return nil, fmt.Errorf("leaderboard query failed: %w", err)
	}
	return entries, nil
}

// Rebuild swaps the whole table inside one transaction. SHARE mode on
// challenges conflicts with the UPDATE in Complete, so a sweep waits for the
// rebuild to commit and a sweep already running is seen by it.
func (r *PostgresStatsRepository) Rebuild(ctx context.Context, tally domain.StatsTally) (n int, err error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin stats rebuild: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `LOCK TABLE challenges IN SHARE MODE`); err != nil {
		return 0, fmt.Errorf("lock challenges: %w", err)
	}

	completed := []*domain.Challenge{}
	if err = tx.SelectContext(ctx, &completed, `SELECT `+challengeColumns+` FROM challenges WHERE status = 'completed'`); err != nil {
		return 0, fmt.Errorf("list completed challenges: %w", err)
	}

	stats := tally(completed)

	if _, err = tx.ExecContext(ctx, `DELETE FROM profile_stats`); err != nil {
		return 0, fmt.Errorf("clear stats: %w", err)
	}

	for _, st := range stats {
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO profile_stats (user_id, wins, losses, updated_at) VALUES (:user_id, :wins, :losses, :updated_at)`,
			st); err != nil {
			return 0, fmt.Errorf("insert stats for %s: %w", st.UserID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stats rebuild: %w", err)
	}
	return len(stats), nil
}
