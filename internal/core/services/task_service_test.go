package services_test

import (
	"context"
	"testing"

	"github.com/comitanigiacomo/kanso-duel/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func newTaskService() *services.TaskService {
	return services.NewTaskService(repository.NewMemoryStore().Tasks())
}

func TestTaskService_Create(t *testing.T) {
	ctx := context.Background()
	svc := newTaskService()

	t.Run("Success", func(t *testing.T) {
		task, err := svc.Create(ctx, services.CreateTaskInput{UserID: "u1", Name: "Gym", TargetDurationHours: 2, PointValue: 20})

		require.NoError(t, err)
		assert.True(t, task.Active)
		assert.Equal(t, "Gym", task.Name)
	})

	t.Run("Validation errors are invalid arguments", func(t *testing.T) {
		inputs := []services.CreateTaskInput{
			{UserID: "u1", Name: "", TargetDurationHours: 1, PointValue: 1},
			{UserID: "u1", Name: "Read", TargetDurationHours: 0, PointValue: 1},
			{UserID: "u1", Name: "Read", TargetDurationHours: 1, PointValue: 0},
		}
		for _, in := range inputs {
			_, err := svc.Create(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		}
	})
}

func TestTaskService_Update(t *testing.T) {
	ctx := context.Background()
	svc := newTaskService()

	task, err := svc.Create(ctx, services.CreateTaskInput{UserID: "u1", Name: "Gym", TargetDurationHours: 2, PointValue: 20})
	require.NoError(t, err)

	t.Run("Partial update keeps unset fields", func(t *testing.T) {
		updated, err := svc.Update(ctx, services.UpdateTaskInput{ID: task.ID, UserID: "u1", PointValue: ptr(30)})

		require.NoError(t, err)
		assert.Equal(t, "Gym", updated.Name)
		assert.Equal(t, 2.0, updated.TargetDurationHours)
		assert.Equal(t, 30, updated.PointValue)
	})

	t.Run("Other users see not found", func(t *testing.T) {
		_, err := svc.Update(ctx, services.UpdateTaskInput{ID: task.ID, UserID: "intruder", Name: ptr("Hacked")})
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("Invalid values are rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, services.UpdateTaskInput{ID: task.ID, UserID: "u1", TargetDurationHours: ptr(-1.0)})
		assert.ErrorIs(t, err, domain.ErrInvalidTargetDuration)
	})

	t.Run("Deactivated tasks cannot be edited", func(t *testing.T) {
		_, err := svc.Deactivate(ctx, task.ID, "u1")
		require.NoError(t, err)

		_, err = svc.Update(ctx, services.UpdateTaskInput{ID: task.ID, UserID: "u1", Name: ptr("Gym 2")})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestTaskService_Activation(t *testing.T) {
	ctx := context.Background()
	svc := newTaskService()

	gym, _ := svc.Create(ctx, services.CreateTaskInput{UserID: "u1", Name: "Gym", TargetDurationHours: 2, PointValue: 20})
	_, _ = svc.Create(ctx, services.CreateTaskInput{UserID: "u1", Name: "Read", TargetDurationHours: 1, PointValue: 10})
	_, _ = svc.Create(ctx, services.CreateTaskInput{UserID: "u2", Name: "Swim", TargetDurationHours: 1, PointValue: 10})

	_, err := svc.Deactivate(ctx, gym.ID, "u1")
	require.NoError(t, err)

	_, err = svc.Deactivate(ctx, gym.ID, "u1")
	require.NoError(t, err, "deactivate is idempotent")

	active, err := svc.List(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Read", active[0].Name)

	all, err := svc.List(ctx, "u1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Deactivate(ctx, gym.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	back, err := svc.Reactivate(ctx, gym.ID, "u1")
	require.NoError(t, err)
	assert.True(t, back.Active)
}
