package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

func TestPostgresCompletionRepository_WithinDay(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	user := seedUser(t, NewPostgresUserRepository(db), "scorer")
	tasks := NewPostgresTaskRepository(db)
	completions := NewPostgresCompletionRepository(db)
	scores := NewPostgresScoreRepository(db)

	task, err := domain.NewTask(user.ID, "Gym", 2, 20)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, task))

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Upsert and score commit together", func(t *testing.T) {
		c, err := domain.NewCompletion(task, day, 1)
		require.NoError(t, err)

		err = completions.WithinDay(ctx, user.ID, day, func(tx domain.DayTx) error {
			if err := tx.UpsertCompletion(ctx, c); err != nil {
				return err
			}
			active, err := tx.ActiveTasks(ctx, user.ID)
			if err != nil {
				return err
			}
			list, err := tx.ListCompletions(ctx, user.ID, day)
			if err != nil {
				return err
			}
			return tx.UpsertDailyScore(ctx, domain.ComputeDailyScore(user.ID, day, active, list))
		})
		require.NoError(t, err)

		got, err := scores.ListRange(ctx, user.ID, day, day)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, 50.0, got[0].PercentageScore, 1e-9)
	})

	t.Run("A failing unit of work leaves nothing behind", func(t *testing.T) {
		other := day.AddDate(0, 0, 1)
		c, err := domain.NewCompletion(task, other, 2)
		require.NoError(t, err)

		boom := errors.New("recompute failed")
		err = completions.WithinDay(ctx, user.ID, other, func(tx domain.DayTx) error {
			if err := tx.UpsertCompletion(ctx, c); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		list, err := completions.ListByDate(ctx, user.ID, other)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Deleting a missing completion is not found", func(t *testing.T) {
		err := completions.WithinDay(ctx, user.ID, day, func(tx domain.DayTx) error {
			return tx.DeleteCompletion(ctx, user.ID, "missing-task", day)
		})
		assert.ErrorIs(t, err, domain.ErrCompletionNotFound)
	})

	t.Run("A held day lock times out instead of blocking", func(t *testing.T) {
		holder, err := db.BeginTxx(ctx, nil)
		require.NoError(t, err)
		defer holder.Rollback()

		_, err = holder.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, dayKey(user.ID, day))
		require.NoError(t, err)

		called := false
		start := time.Now()
		err = completions.WithinDay(ctx, user.ID, day, func(tx domain.DayTx) error {
			called = true
			return nil
		})

		assert.Error(t, err)
		assert.False(t, called)
		assert.Less(t, time.Since(start), txTimeout)
	})
}
