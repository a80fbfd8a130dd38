// AngelaMos | 2026
// redis.go

package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notbyai-space/curation-api/internal/core"
)

// Keys outlive their day so a late release still finds the counter.
const keyTTL = 48 * time.Hour

var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
	return -1
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return n
`)

var releaseScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current > 0 then
	return redis.call('DECR', KEYS[1])
end
return 0
`)

type redisEnforcer struct {
	rdb   *redis.Client
	limit int
}

func NewRedis(rdb *redis.Client, limit int) Enforcer {
	return &redisEnforcer{rdb: rdb, limit: limit}
}

func key(userID string, day core.Day) string {
	return fmt.Sprintf("quota:%s:%s", userID, day)
}

func (r *redisEnforcer) Limit() int {
	return r.limit
}

func (r *redisEnforcer) Reserve(
	ctx context.Context,
	userID string,
	day core.Day,
) (int, error) {
	n, err := reserveScript.Run(
		ctx,
		r.rdb,
		[]string{key(userID, day)},
		r.limit,
		int(keyTTL.Seconds()),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("reserve quota: %w", err)
	}

	if n < 0 {
		return 0, fmt.Errorf("reserve quota: %w", ErrQuotaExceeded)
	}

	return n, nil
}

func (r *redisEnforcer) Release(
	ctx context.Context,
	userID string,
	day core.Day,
) error {
	err := releaseScript.Run(ctx, r.rdb, []string{key(userID, day)}).Err()
	if err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

func (r *redisEnforcer) Used(
	ctx context.Context,
	userID string,
	day core.Day,
) (int, error) {
	n, err := r.rdb.Get(ctx, key(userID, day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return n, nil
}
