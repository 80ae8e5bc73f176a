package httpx

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	log.SetOutput(io.Discard)
}

func newLimitedRouter(counter Counter, limit int) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(counter, limit))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func doGet(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_RejectsAboveLimit(t *testing.T) {
	r := newLimitedRouter(NewMemoryCounter(), 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "10.0.0.1").Code)
	}
	w := doGet(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit exceeded. Please slow down.")
}

func TestRateLimit_KeysByClientIP(t *testing.T) {
	r := newLimitedRouter(NewMemoryCounter(), 1)

	assert.Equal(t, http.StatusOK, doGet(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "10.0.0.2").Code, "a second client has its own budget")
}

func TestRateLimit_UsesFirstForwardedForEntry(t *testing.T) {
	r := newLimitedRouter(NewMemoryCounter(), 1)

	assert.Equal(t, http.StatusOK, doGet(r, "10.0.0.1, 192.168.0.9").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "10.0.0.1, 172.16.0.3").Code,
		"proxy hops after the first entry must not change the key")
}

func TestRateLimit_NonPositiveLimitDisables(t *testing.T) {
	r := newLimitedRouter(NewMemoryCounter(), 0)

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "10.0.0.1").Code)
	}
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis: connection refused")
}

func TestRateLimit_FailsOpenOnCounterError(t *testing.T) {
	r := newLimitedRouter(failingCounter{}, 1)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "10.0.0.1").Code)
	}
}

func TestMemoryCounter_WindowExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCounter()
	m.now = func() time.Time { return now }

	ctx := context.Background()
	n, err := m.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, _ = m.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(2), n)

	now = now.Add(61 * time.Second)
	n, err = m.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "count restarts once the window lapses")
}

func TestRequireUser(t *testing.T) {
	r := gin.New()
	r.Use(RequireUser())
	r.GET("/me", func(c *gin.Context) {
		uid, _ := UserID(c)
		c.String(http.StatusOK, uid)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "u1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}
