package repository

import (
	"context"
	"os"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

type countingTaskRepo struct {
	domain.TaskRepository
	lists atomic.Int32
}

func (r *countingTaskRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Task, error) {
	r.lists.Add(1)
	return r.TaskRepository.ListByUserID(ctx, userID)
}

func TestCachedTaskRepository_RedisDownFallsThrough(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	next := &countingTaskRepo{TaskRepository: NewMemoryStore().Tasks()}
	repo := NewCachedTaskRepository(next, rdb, zap.NewNop())
	ctx := context.Background()

	task, err := domain.NewTask("u1", "Read", 1, 10)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, task))

	list, err := repo.ListByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int32(1), next.lists.Load())
}

func TestCachedTaskRepository_Integration(t *testing.T) {
	addr := "localhost:6379"
	if host := os.Getenv("REDIS_HOST"); host != "" {
		addr = host + ":6379"
	}
	pass := os.Getenv("REDIS_PASSWORD")
	if pass == "" {
		pass = "secret_redis_pass_local"
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: 1})
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping integration test (Redis down): %v", err)
	}

	next := &countingTaskRepo{TaskRepository: NewMemoryStore().Tasks()}
	repo := NewCachedTaskRepository(next, rdb, zap.NewNop())

	userID := "cache-user-" + t.Name()
	rdb.Del(ctx, repo.cacheKey(userID))

	task, _ := domain.NewTask(userID, "Gym", 2, 20)
	require.NoError(t, repo.Create(ctx, task))

	t.Run("Second read is served from Redis", func(t *testing.T) {
		_, err := repo.ListByUserID(ctx, userID)
		require.NoError(t, err)
		list, err := repo.ListByUserID(ctx, userID)
		require.NoError(t, err)

		assert.Len(t, list, 1)
		assert.Equal(t, int32(1), next.lists.Load())
	})

	t.Run("Update drops the cached list", func(t *testing.T) {
		task.Deactivate()
		require.NoError(t, repo.Update(ctx, task))

		list, err := repo.ListByUserID(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.False(t, list[0].Active)
		assert.Equal(t, int32(2), next.lists.Load())
	})

	t.Run("Corrupted entries are reloaded", func(t *testing.T) {
		require.NoError(t, rdb.Set(ctx, repo.cacheKey(userID), "{not json", 0).Err())

		list, err := repo.ListByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Equal(t, int32(3), next.lists.Load())
	})
}
