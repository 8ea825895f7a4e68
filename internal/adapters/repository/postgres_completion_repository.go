package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/jmoiron/sqlx"
)

var _ domain.CompletionRepository = (*PostgresCompletionRepository)(nil)

const completionColumns = `user_id, task_id, completion_date, actual_duration_hours, earned_points, created_at, updated_at`

type PostgresCompletionRepository struct {
	db *sqlx.DB
}

func NewPostgresCompletionRepository(db *sqlx.DB) *PostgresCompletionRepository {
	return &PostgresCompletionRepository{db: db}
}

func (r *PostgresCompletionRepository) ListByDate(ctx context.Context, userID string, date time.Time) ([]*domain.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return selectCompletions(ctx, r.db, userID, date)
}

// WithinDay runs fn in a transaction holding an advisory lock on the
// (user, day) pair. The lock is released on commit or rollback. Waiting for
// the lock gives up after lockTimeout, the whole unit after txTimeout.
func (r *PostgresCompletionRepository) WithinDay(ctx context.Context, userID string, date time.Time, fn func(tx domain.DayTx) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin day tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// fn runs its statements on the caller's context, so the server enforces the bounds too.
	for _, stmt := range []string{
		fmt.Sprintf(`SET LOCAL lock_timeout = %d`, lockTimeout.Milliseconds()),
		fmt.Sprintf(`SET LOCAL statement_timeout = %d`, queryTimeout.Milliseconds()),
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bound day tx: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, dayKey(userID, date)); err != nil {
		return fmt.Errorf("lock day: %w", err)
	}

	if err = fn(&pgDayTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit day tx: %w", err)
	}
	return nil
}

type pgDayTx struct {
	tx *sqlx.Tx
}

func (t *pgDayTx) ActiveTasks(ctx context.Context, userID string) ([]*domain.Task, error) {
	return selectTasks(ctx, t.tx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND active ORDER BY created_at ASC, id ASC`, userID)
}

func (t *pgDayTx) ListCompletions(ctx context.Context, userID string, date time.Time) ([]*domain.Completion, error) {
	return selectCompletions(ctx, t.tx, userID, date)
}

func (t *pgDayTx) UpsertCompletion(ctx context.Context, c *domain.Completion) error {
	query := `
        INSERT INTO completions (` + completionColumns + `)
        VALUES (:user_id, :task_id, :completion_date, :actual_duration_hours, :earned_points, :created_at, :updated_at)
        ON CONFLICT (user_id, task_id, completion_date) DO UPDATE SET
            actual_duration_hours = EXCLUDED.actual_duration_hours,
            earned_points = EXCLUDED.earned_points,
            updated_at = EXCLUDED.updated_at`

	if _, err := t.tx.NamedExecContext(ctx, query, c); err != nil {
		if pgCode(err) == foreignKeyViolation {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("upsert completion failed: %w", err)
	}
	return nil
}

func (t *pgDayTx) DeleteCompletion(ctx context.Context, userID, taskID string, date time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM completions WHERE user_id = $1 AND task_id = $2 AND completion_date = $3`,
		userID, taskID, domain.DateOnly(date))
	if err != nil {
		return fmt.Errorf("delete completion failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCompletionNotFound
	}
	return nil
}

func (t *pgDayTx) UpsertDailyScore(ctx context.Context, s *domain.DailyScore) error {
	query := `
        INSERT INTO daily_scores (user_id, score_date, total_possible_points, earned_points, percentage_score, updated_at)
        VALUES (:user_id, :score_date, :total_possible_points, :earned_points, :percentage_score, :updated_at)
        ON CONFLICT (user_id, score_date) DO UPDATE SET
            total_possible_points = EXCLUDED.total_possible_points,
            earned_points = EXCLUDED.earned_points,
            percentage_score = EXCLUDED.percentage_score,
            updated_at = EXCLUDED.updated_at`

	if _, err := t.tx.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("upsert daily score failed: %w", err)
	}
	return nil
}

func selectCompletions(ctx context.Context, q sqlx.QueryerContext, userID string, date time.Time) ([]*domain.Completion, error) {
	out := []*domain.Completion{}
	query := `SELECT ` + completionColumns + ` FROM completions WHERE user_id = $1 AND completion_date = $2 ORDER BY task_id`
	if err := sqlx.SelectContext(ctx, q, &out, query, userID, domain.DateOnly(date)); err != nil {
		return nil, fmt.Errorf("list completions failed: %w", err)
	}
	return out, nil
}
