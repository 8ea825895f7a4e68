package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/jmoiron/sqlx"
)

var _ domain.ChallengeRepository = (*PostgresChallengeRepository)(nil)

const challengeColumns = `id, creator_id, challenger_id, start_date, end_date, status, winner_id, created_at, updated_at`

type PostgresChallengeRepository struct {
	db *sqlx.DB
}

func NewPostgresChallengeRepository(db *sqlx.DB) *PostgresChallengeRepository {
	return &PostgresChallengeRepository{db: db}
}

func (r *PostgresChallengeRepository) Create(ctx context.Context, c *domain.Challenge) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO challenges (` + challengeColumns + `)
        VALUES (:id, :creator_id, :challenger_id, :start_date, :end_date, :status, :winner_id, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		switch {
		case pgCode(err) == foreignKeyViolation:
			return domain.ErrUserNotFound
		case pgCode(err) == checkViolation && pgConstraint(err) == "challenges_window":
			return domain.ErrInvalidDurationCount
		}
		return fmt.Errorf("failed to insert challenge: %w", err)
	}
	return nil
}

func (r *PostgresChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c domain.Challenge
	if err := r.db.GetContext(ctx, &c, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("get challenge failed: %w", err)
	}
	return &c, nil
}

func (r *PostgresChallengeRepository) ListByUserID(ctx context.Context, userID string, status domain.ChallengeStatus) ([]*domain.Challenge, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT ` + challengeColumns + ` FROM challenges
        WHERE (creator_id = $1 OR challenger_id = $1) AND ($2 = '' OR status = $2)
        ORDER BY created_at DESC, id DESC`

	return r.selectChallenges(ctx, query, userID, string(status))
}

func (r *PostgresChallengeRepository) ListDue(ctx context.Context, asOf time.Time) ([]*domain.Challenge, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT ` + challengeColumns + ` FROM challenges
        WHERE status = 'active' AND end_date <= $1
        ORDER BY end_date ASC, id ASC`

	return r.selectChallenges(ctx, query, domain.DateOnly(asOf))
}

func (r *PostgresChallengeRepository) selectChallenges(ctx context.Context, query string, args ...interface{}) ([]*domain.Challenge, error) {
	out := []*domain.Challenge{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list challenges failed: %w", err)
	}
	return out, nil
}

func (r *PostgresChallengeRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ChallengeStatus, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE challenges SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at.UTC())
	if err != nil {
		return fmt.Errorf("update challenge status failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	exists, err := r.exists(ctx, r.db, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrChallengeNotFound
	}
	return domain.ErrChallengeStatusConflict
}

// Complete settles the challenge and bumps both counters in one transaction.
func (r *PostgresChallengeRepository) Complete(ctx context.Context, o domain.Outcome, at time.Time) (done bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() {
		if err != nil || !done {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE challenges SET status = 'completed', winner_id = $2, updated_at = $3 WHERE id = $1 AND status = 'active'`,
		o.ChallengeID, o.WinnerID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("complete challenge failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		exists, err := r.exists(ctx, tx, o.ChallengeID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, domain.ErrChallengeNotFound
		}
		return false, nil
	}

	if o.WinnerID != nil && o.LoserID != nil {
		if err = bumpStats(ctx, tx, *o.WinnerID, 1, 0, at); err != nil {
			return false, err
		}
		if err = bumpStats(ctx, tx, *o.LoserID, 0, 1, at); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit complete tx: %w", err)
	}
	return true, nil
}

func (r *PostgresChallengeRepository) exists(ctx context.Context, q sqlx.QueryerContext, id string) (bool, error) {
	var count int
	if err := sqlx.GetContext(ctx, q, &count, `SELECT count(*) FROM challenges WHERE id = $1`, id); err != nil {
		return false, fmt.Errorf("existence check failed: %w", err)
	}
	return count > 0, nil
}

func bumpStats(ctx context.Context, tx *sqlx.Tx, userID string, wins, losses int, at time.Time) error {
	query := `
        INSERT INTO profile_stats (user_id, wins, losses, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE SET
            wins = profile_stats.wins + EXCLUDED.wins,
            losses = profile_stats.losses + EXCLUDED.losses,
            updated_at = EXCLUDED.updated_at`

	if _, err := tx.ExecContext(ctx, query, userID, wins, losses, at.UTC()); err != nil {
		return fmt.Errorf("bump stats for %s failed: %w", userID, err)
	}
	return nil
}
