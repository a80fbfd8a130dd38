// AngelaMos | 2026
// quota.go

package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/notbyai-space/curation-api/internal/core"
)

var ErrQuotaExceeded = errors.New("daily post quota exceeded")

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Enforcer counts posts per (user, day). Reserve is a single atomic
// check-and-increment; there is no separate read-then-write path.
type Enforcer interface {
	// Reserve takes one slot and returns the count after taking it, or
	// ErrQuotaExceeded when the day is full.
	Reserve(ctx context.Context, userID string, day core.Day) (int, error)
	// Release gives back a slot taken by Reserve. It never goes below zero.
	Release(ctx context.Context, userID string, day core.Day) error
	Used(ctx context.Context, userID string, day core.Day) (int, error)
	Limit() int
}

func New(
	backend string,
	limit int,
	db core.DBTX,
	rdb *redis.Client,
) (Enforcer, error) {
	if limit < 1 {
		return nil, fmt.Errorf("quota: limit must be positive: %w", core.ErrInvalidInput)
	}

	switch backend {
	case BackendPostgres, "":
		if db == nil {
			return nil, fmt.Errorf("quota: postgres backend needs a database")
		}
		return NewPostgres(db, limit), nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("quota: redis backend needs a client")
		}
		return NewRedis(rdb, limit), nil
	default:
		return nil, fmt.Errorf("quota: unknown backend %q: %w", backend, core.ErrInvalidInput)
	}
}

// Remaining is what the client shows as posts left today.
func Remaining(ctx context.Context, e Enforcer, userID string, day core.Day) (int, error) {
	used, err := e.Used(ctx, userID, day)
	if err != nil {
		return 0, err
	}
	return max(e.Limit()-used, 0), nil
}
