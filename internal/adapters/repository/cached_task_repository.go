package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

var _ domain.TaskRepository = (*CachedTaskRepository)(nil)

const taskCacheTTL = 30 * time.Minute

// CachedTaskRepository is a read-through cache of each user's task list.
// Every write drops the user's key; concurrent misses share one load.
type CachedTaskRepository struct {
	next   domain.TaskRepository
	cache  *redis.Client
	logger *zap.Logger
	group  singleflight.Group
}

func NewCachedTaskRepository(next domain.TaskRepository, cache *redis.Client, logger *zap.Logger) *CachedTaskRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTaskRepository{
		next:   next,
		cache:  cache,
		logger: logger,
	}
}

func (r *CachedTaskRepository) cacheKey(userID string) string {
	return fmt.Sprintf("tasks:%s", userID)
}

func (r *CachedTaskRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Del(ctx, r.cacheKey(userID)).Err(); err != nil {
		r.logger.Warn("[CACHE] Failed to invalidate", zap.String("user_id", userID), zap.Error(err))
	}
}

func (r *CachedTaskRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Task, error) {
	key := r.cacheKey(userID)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var tasks []*domain.Task
		if err := json.Unmarshal([]byte(val), &tasks); err == nil {
			return tasks, nil
		}

		r.logger.Warn("[CACHE] Corrupted data, cleaning up key", zap.String("user_id", userID))
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		r.logger.Warn("[CACHE] Redis read error", zap.Error(err))
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		tasks, err := r.next.ListByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(tasks); err == nil {
			if setErr := r.cache.Set(ctx, key, data, taskCacheTTL).Err(); setErr != nil {
				r.logger.Warn("[CACHE] Redis set error", zap.Error(setErr))
			}
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}

	shared := v.([]*domain.Task)
	tasks := make([]*domain.Task, len(shared))
	for i, t := range shared {
		clone := *t
		tasks[i] = &clone
	}
	return tasks, nil
}

func (r *CachedTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := r.next.Create(ctx, task); err != nil {
		return err
	}
	r.invalidate(ctx, task.UserID)
	return nil
}

func (r *CachedTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	if err := r.next.Update(ctx, task); err != nil {
		return err
	}
	r.invalidate(ctx, task.UserID)
	return nil
}
