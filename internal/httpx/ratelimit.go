package httpx

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = 60 * time.Second

// Counter tracks per-key request counts inside a fixed expiry window.
type Counter interface {
	// Incr bumps the key and returns the count after the increment. The key
	// expires window after its first increment.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit rejects clients that exceed limit requests per 60-second window,
// keyed by client IP. A non-positive limit disables the middleware entirely.
// Counter failures fail open: a broken Redis must not take the store down.
func RateLimit(counter Counter, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		key := "ratelimit:" + clientIP(c)
		n, err := counter.Incr(c.Request.Context(), key, rateLimitWindow)
		if err != nil {
			log.Printf("[ratelimit] counter error: %v", err)
			c.Next()
			return
		}
		if n > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please slow down.",
			})
			return
		}
		c.Next()
	}
}

type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// MemoryCounter is a process-local Counter for tests and single-node setups.
type MemoryCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if exp, ok := m.expires[key]; ok && now.After(exp) {
		delete(m.counts, key)
		delete(m.expires, key)
	}
	m.counts[key]++
	if m.counts[key] == 1 {
		m.expires[key] = now.Add(window)
	}
	return m.counts[key], nil
}
