// AngelaMos | 2026
// entity.go

package user

import (
	"context"
	"fmt"
	"time"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/middleware"
)

type Role string

const (
	RoleNewUser   Role = "new_user"
	RoleSeedUser  Role = "seed_user"
	RoleModerator Role = "moderator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleNewUser, RoleSeedUser, RoleModerator:
		return true
	}
	return false
}

// CanReview reports whether the role may read the moderation queue and
// decide on pending posts.
func (r Role) CanReview() bool {
	return r == RoleSeedUser || r == RoleModerator
}

func (r Role) CanManageUsers() bool {
	return r == RoleModerator
}

// Redeemable is the set of roles an invite code may grant.
func (r Role) Redeemable() bool {
	return r == RoleSeedUser || r == RoleModerator
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("parse role %q: %w", s, core.ErrInvalidInput)
	}
	return r, nil
}

// ReviewerRoles lists the roles allowed past RequireRole on reviewer
// routes.
func ReviewerRoles() []string {
	return []string{string(RoleSeedUser), string(RoleModerator)}
}

type User struct {
	ID            string     `db:"id"`
	ExternalID    string     `db:"external_id"`
	Email         string     `db:"email"`
	Role          Role       `db:"role"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	DeactivatedAt *time.Time `db:"deactivated_at"`
}

func (u *User) IsDeactivated() bool {
	return u.DeactivatedAt != nil
}

type InviteCode struct {
	CodeHash   string     `db:"code_hash"`
	Role       Role       `db:"role"`
	CreatedBy  *string    `db:"created_by"`
	CreatedAt  time.Time  `db:"created_at"`
	ConsumedBy *string    `db:"consumed_by"`
	ConsumedAt *time.Time `db:"consumed_at"`
}

// InviteStatus reports what happened to the invite code sent with a sync.
type InviteStatus string

const (
	InviteNone     InviteStatus = "none"
	InviteRedeemed InviteStatus = "redeemed"
	InviteInvalid  InviteStatus = "invalid"
	InviteIgnored  InviteStatus = "ignored"
)

type Identity struct {
	Subject string
	Email   string
}

type SyncResult struct {
	User    *User
	Created bool
	Invite  InviteStatus
}

// Actor is the authenticated caller of a domain operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) CanReview() bool {
	return a.Role.CanReview()
}

// ActorFromContext builds the caller from what ResolveUser stored on the
// request context.
func ActorFromContext(ctx context.Context) (Actor, error) {
	id := middleware.GetUserID(ctx)
	if id == "" {
		return Actor{}, fmt.Errorf("actor from context: %w", core.ErrUnauthorized)
	}

	role, err := ParseRole(middleware.GetUserRole(ctx))
	if err != nil {
		return Actor{}, fmt.Errorf("actor from context: %w", core.ErrUnauthorized)
	}

	return Actor{ID: id, Role: role}, nil
}
