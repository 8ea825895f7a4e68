package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/jmoiron/sqlx"
)

var _ domain.TaskRepository = (*PostgresTaskRepository)(nil)

const taskColumns = `id, user_id, name, target_duration_hours, point_value, active, created_at, updated_at`

type PostgresTaskRepository struct {
	db *sqlx.DB
}

func NewPostgresTaskRepository(db *sqlx.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) Create(ctx context.Context, t *domain.Task) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO tasks (` + taskColumns + `)
        VALUES (:id, :user_id, :name, :target_duration_hours, :point_value, :active, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		if pgCode(err) == foreignKeyViolation {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *PostgresTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t domain.Task
	err := r.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task failed: %w", err)
	}
	return &t, nil
}

func (r *PostgresTaskRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return selectTasks(ctx, r.db, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at ASC, id ASC`, userID)
}

func (r *PostgresTaskRepository) Update(ctx context.Context, t *domain.Task) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        UPDATE tasks SET
            name = :name, target_duration_hours = :target_duration_hours,
            point_value = :point_value, active = :active, updated_at = :updated_at
        WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("update task failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func selectTasks(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]*domain.Task, error) {
	tasks := []*domain.Task{}
	if err := sqlx.SelectContext(ctx, q, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks failed: %w", err)
	}
	return tasks, nil
}
