package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiterForTest(t *testing.T) (*miniredis.Miniredis, *RedisAttemptLimiter) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, NewRedisAttemptLimiter(client, "test")
}

func TestRedisAttemptLimiter_FixedWindow(t *testing.T) {
	m, l := newLimiterForTest(t)
	ctx := context.Background()

	for i := range 3 {
		ok, _, err := l.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "attempt %d", i+1)
	}

	ok, retry, err := l.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	ok, _, err = l.Allow(ctx, "login:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	m.FastForward(time.Minute + time.Second)
	ok, _, err = l.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window reset")
}

func TestRedisAttemptLimiter_BackendErrors(t *testing.T) {
	_, _, err := NewRedisAttemptLimiter(nil, "").Allow(context.Background(), "k", 1, time.Second)
	require.Error(t, err)

	bad := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 20 * time.Millisecond})
	t.Cleanup(func() { _ = bad.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, _, err = NewRedisAttemptLimiter(bad, "").Allow(ctx, "k", 1, time.Second)
	require.Error(t, err)
}

func TestLimitAttempts_LoginReturns429(t *testing.T) {
	_, l := newLimiterForTest(t)
	api := newTestAPI(t, WithAttemptLimit(l, 2, time.Minute))
	body := map[string]string{"email": "ghost@example.com", "password": "whatever"}

	for range 2 {
		rec := api.do(t, http.MethodPost, "/auth/login", body, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := api.do(t, http.MethodPost, "/auth/login", body, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many attempts, try again later","code":"RATE_LIMITED"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(api.metrics.RateLimited.WithLabelValues("login")))

	// signup is not limited
	rec = api.do(t, http.MethodPost, "/auth/signup", map[string]string{"email": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestLimitAttempts_FailsOpen(t *testing.T) {
	api := newTestAPI(t, WithAttemptLimit(brokenLimiter{}, 1, time.Minute))

	rec := api.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "ghost@example.com", "password": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, api.logs.String(), "attempt limiter unavailable")
}
