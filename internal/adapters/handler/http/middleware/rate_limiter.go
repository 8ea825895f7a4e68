package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/comitanigiacomo/kanso-duel/internal/adapters/cache"
)

const visitorTTL = 3 * time.Minute

// RateLimiterMiddleware allows limit requests per client IP and window. The
// count lives in Redis so every instance shares it; with no Redis, or while
// Redis errors, a per-process token bucket with the same rate takes over.
func RateLimiterMiddleware(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	local := newLocalLimiter(limit, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if rdb == nil {
			local.handle(c, clientIP)
			return
		}

		key := fmt.Sprintf("rate_limit:%s", clientIP)
		count, ttl, err := cache.IncrWindow(c.Request.Context(), rdb, key, window)
		if err != nil {
			logger.Warn("[RATE] redis unavailable, using local limiter", zap.Error(err))
			local.handle(c, clientIP)
			return
		}

		resetTime := time.Now().Add(ttl).Unix()
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max(0, int64(limit)-count)))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))

		if count > int64(limit) {
			tooMany(c, ttl)
			return
		}

		c.Next()
	}
}

func tooMany(c *gin.Context, retryIn time.Duration) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"status":     "error",
		"message":    "Too many requests. Slow down!",
		"retry_in_s": int(retryIn.Seconds()),
	})
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localLimiter struct {
	every rate.Limit
	burst int

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastPrune time.Time
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		every:     rate.Every(window / time.Duration(max(1, limit))),
		burst:     max(1, limit),
		visitors:  make(map[string]*visitor),
		lastPrune: time.Now(),
	}
}

func (l *localLimiter) handle(c *gin.Context, ip string) {
	limiter := l.get(ip)

	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", l.burst))
	if !limiter.Allow() {
		tooMany(c, time.Duration(float64(time.Second)/float64(l.every)))
		return
	}
	c.Next()
}

func (l *localLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > visitorTTL {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, key)
			}
		}
		l.lastPrune = now
	}

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}
