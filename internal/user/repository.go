// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/notbyai-space/curation-api/internal/core"
)

// ErrInviteUnavailable means the code does not exist or was already
// consumed.
var ErrInviteUnavailable = errors.New("invite code unavailable")

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	// Create inserts the user. With a non-empty inviteHash the invite is
	// consumed in the same transaction and its role is applied to user.
	Create(ctx context.Context, user *User, inviteHash string) error
	UpdateRole(ctx context.Context, id string, role Role) (*User, error)
	Deactivate(ctx context.Context, id string) error
	CreateInvite(ctx context.Context, invite *InviteCode) error
	SeedInvite(ctx context.Context, codeHash string, role Role) (bool, error)
	Count(ctx context.Context) (int, error)
	// EmailsByID omits ids with no matching user.
	EmailsByID(ctx context.Context, ids []string) (map[string]string, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, external_id, email, role, created_at, updated_at, deactivated_at`

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u User
	err := r.db.GetContext(ctx, &u, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

func (r *repository) GetByExternalID(
	ctx context.Context,
	externalID string,
) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`

	var u User
	err := r.db.GetContext(ctx, &u, query, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by external id: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by external id: %w", err)
	}

	return &u, nil
}

func (r *repository) Create(
	ctx context.Context,
	user *User,
	inviteHash string,
) error {
	return core.InTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if inviteHash != "" {
			var role Role
			err := tx.GetContext(ctx, &role, `
				UPDATE invite_codes
				SET consumed_by = $2, consumed_at = NOW()
				WHERE code_hash = $1 AND consumed_at IS NULL
				RETURNING role`,
				inviteHash, user.ID,
			)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("consume invite: %w", ErrInviteUnavailable)
			}
			if err != nil {
				return fmt.Errorf("consume invite: %w", err)
			}
			user.Role = role
		}

		err := tx.GetContext(ctx, user, `
			INSERT INTO users (id, external_id, email, role)
			VALUES ($1, $2, $3, $4)
			RETURNING `+userColumns,
			user.ID, user.ExternalID, user.Email, user.Role,
		)
		if err != nil {
			if core.IsUniqueViolation(err) {
				return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
			}
			return fmt.Errorf("create user: %w", err)
		}

		return nil
	})
}

func (r *repository) UpdateRole(
	ctx context.Context,
	id string,
	role Role,
) (*User, error) {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u User
	err := r.db.GetContext(ctx, &u, query, id, role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	return &u, nil
}

func (r *repository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET deactivated_at = COALESCE(deactivated_at, NOW()), updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("deactivate user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CreateInvite(ctx context.Context, invite *InviteCode) error {
	query := `
		INSERT INTO invite_codes (code_hash, role, created_by)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &invite.CreatedAt, query,
		invite.CodeHash,
		invite.Role,
		invite.CreatedBy,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create invite: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create invite: %w", err)
	}

	return nil
}

// SeedInvite inserts a bootstrap code unless it already exists. It
// reports whether a row was written.
func (r *repository) SeedInvite(
	ctx context.Context,
	codeHash string,
	role Role,
) (bool, error) {
	query := `
		INSERT INTO invite_codes (code_hash, role)
		VALUES ($1, $2)
		ON CONFLICT (code_hash) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, codeHash, role)
	if err != nil {
		return false, fmt.Errorf("seed invite: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed invite: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *repository) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT id, email FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("emails by id: %w", err)
	}

	var rows []struct {
		ID    string `db:"id"`
		Email string `db:"email"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("emails by id: %w", err)
	}

	for _, row := range rows {
		out[row.ID] = row.Email
	}
	return out, nil
}
