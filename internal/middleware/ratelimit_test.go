// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis forces every limiter call onto the in-process bucket.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, ctxRole, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	if userID != "" {
		req = req.WithContext(WithUser(req.Context(), userID, ctxRole))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_LocalFallback(t *testing.T) {
	rl := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit:   PerWindow(1, time.Hour, 2),
		KeyFunc: KeyByUser,
	})
	h := rl.Handler(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "new_user", "u1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "new_user", "u1").Code)

	rec := hit(h, "new_user", "u1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, hit(h, "new_user", "u2").Code)
}

func TestRateLimiter_RoleLimits(t *testing.T) {
	rl := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit:   PerWindow(1, time.Hour, 1),
		KeyFunc: KeyByUser,
		RoleLimits: map[string]redis_rate.Limit{
			"moderator": PerWindow(1, time.Hour, 4),
		},
	})
	h := rl.Handler(okHandler())

	for range 4 {
		assert.Equal(t, http.StatusOK, hit(h, "moderator", "mod").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "moderator", "mod").Code)

	assert.Equal(t, http.StatusOK, hit(h, "seed_user", "seed").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "seed_user", "seed").Code)
}

func TestKeyFuncs(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.2:4000"
	assert.Equal(t, "ratelimit:ip:198.51.100.2", KeyByIP(req))
	assert.Equal(t, "ratelimit:ip:198.51.100.2", KeyByUser(req))

	req.Header.Set("X-Forwarded-For", "10.0.0.1, 192.0.2.9")
	assert.Equal(t, "ratelimit:ip:192.0.2.9", KeyByIP(req))

	req = req.WithContext(WithIdentity(req.Context(), "auth0|abc", ""))
	assert.Equal(t, "ratelimit:subject:auth0|abc", KeyByUser(req))

	req = req.WithContext(WithUser(req.Context(), "u-9", "new_user"))
	assert.Equal(t, "ratelimit:user:u-9", KeyByUser(req))
}

func TestPerWindow_DefaultsBurst(t *testing.T) {
	l := PerWindow(30, time.Minute, 0)
	assert.Equal(t, 30, l.Burst)
	assert.Equal(t, time.Minute, l.Period)
}
