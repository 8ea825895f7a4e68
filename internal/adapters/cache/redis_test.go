package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-duel/internal/platform/config"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestRedisClient_Integration(t *testing.T) {
	_ = godotenv.Load("../../../.env")

	cfg := config.RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", "secret_redis_pass_local"),
		DB:       1,
	}

	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, cfg)
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	defer rdb.Close()

	require.NoError(t, rdb.FlushDB(ctx).Err(), "Failed to flush test DB")

	t.Run("Connection Ping", func(t *testing.T) {
		pong, err := rdb.Ping(ctx).Result()
		assert.NoError(t, err)
		assert.Equal(t, "PONG", pong)
	})

	t.Run("Fixed window counts and expires", func(t *testing.T) {
		key := "test_window"

		for i := int64(1); i <= 3; i++ {
			count, ttl, err := IncrWindow(ctx, rdb, key, 1*time.Second)
			require.NoError(t, err)
			assert.Equal(t, i, count)
			assert.LessOrEqual(t, ttl, 1*time.Second)
		}

		time.Sleep(1100 * time.Millisecond)

		_, err := rdb.Get(ctx, key).Result()
		assert.ErrorIs(t, err, redis.Nil, "Errors need to be of type 'redis.Nil'")

		count, _, err := IncrWindow(ctx, rdb, key, 1*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "a new window starts after expiry")
	})

	t.Run("Concurrent hits are all counted", func(t *testing.T) {
		concurrency := 20
		key := fmt.Sprintf("concurrent_window_%d", time.Now().UnixNano())
		done := make(chan bool)

		for i := 0; i < concurrency; i++ {
			go func() {
				_, _, err := IncrWindow(ctx, rdb, key, 10*time.Second)
				assert.NoError(t, err)
				done <- true
			}()
		}

		for i := 0; i < concurrency; i++ {
			<-done
		}

		val, err := rdb.Get(ctx, key).Int64()
		require.NoError(t, err)
		assert.Equal(t, int64(concurrency), val)
	})
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
}
