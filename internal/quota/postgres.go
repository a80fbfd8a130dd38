// AngelaMos | 2026
// postgres.go

package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notbyai-space/curation-api/internal/core"
)

type postgresEnforcer struct {
	db    core.DBTX
	limit int
}

func NewPostgres(db core.DBTX, limit int) Enforcer {
	return &postgresEnforcer{db: db, limit: limit}
}

func (p *postgresEnforcer) Limit() int {
	return p.limit
}

func (p *postgresEnforcer) Reserve(
	ctx context.Context,
	userID string,
	day core.Day,
) (int, error) {
	// The conflict branch only fires below the ceiling; at the ceiling no
	// row comes back.
	query := `
		INSERT INTO daily_post_counters (user_id, day, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day) DO UPDATE
		SET count = daily_post_counters.count + 1
		WHERE daily_post_counters.count < $3
		RETURNING count`

	var count int
	err := p.db.GetContext(ctx, &count, query, userID, string(day), p.limit)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reserve quota: %w", ErrQuotaExceeded)
	}
	if err != nil {
		return 0, fmt.Errorf("reserve quota: %w", err)
	}

	return count, nil
}

func (p *postgresEnforcer) Release(
	ctx context.Context,
	userID string,
	day core.Day,
) error {
	query := `
		UPDATE daily_post_counters
		SET count = count - 1
		WHERE user_id = $1 AND day = $2 AND count > 0`

	if _, err := p.db.ExecContext(ctx, query, userID, string(day)); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}

	return nil
}

func (p *postgresEnforcer) Used(
	ctx context.Context,
	userID string,
	day core.Day,
) (int, error) {
	query := `
		SELECT COALESCE(
			(SELECT count FROM daily_post_counters WHERE user_id = $1 AND day = $2),
			0)`

	var used int
	if err := p.db.GetContext(ctx, &used, query, userID, string(day)); err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}

	return used, nil
}
