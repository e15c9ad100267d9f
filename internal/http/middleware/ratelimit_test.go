package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/pkg/logging"
)

func TestMemoryLimiterRefills(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewMemoryLimiter(ctx, 1, 2)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _ := rl.Allow(ctx, "1.2.3.4")
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
	ok, _ = rl.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Second)
	ok, _ = rl.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
}

func TestMemoryLimiterEvictsStaleBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewMemoryLimiter(ctx, 1, 1)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	_, _ = rl.Allow(ctx, "1.2.3.4")
	rl.evict(now.Add(time.Minute))
	rl.mu.Lock()
	assert.Empty(t, rl.buckets)
	rl.mu.Unlock()
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rl := NewRedisLimiter(client, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("aba:ratelimit:1.2.3.4"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })

	limiter := &stubLimiter{allowed: false}
	req := httptest.NewRequest(http.MethodPost, "/api/listings/l-1/inquiries", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	rec := httptest.NewRecorder()
	RateLimit(limiter, logging.Discard())(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many requests")
	assert.Equal(t, []string{"10.0.0.7"}, limiter.keys)

	limiter = &stubLimiter{err: errors.New("redis down")}
	req = httptest.NewRequest(http.MethodPost, "/api/listings/l-1/inquiries", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.9")
	rec = httptest.NewRecorder()
	RateLimit(limiter, logging.Discard())(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"203.0.113.9"}, limiter.keys)
}
