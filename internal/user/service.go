// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/notbyai-space/curation-api/internal/config"
	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/middleware"
)

var ErrDeactivated = fmt.Errorf("account deactivated: %w", core.ErrForbidden)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Sync maps a verified identity onto the directory, creating the user on
// first contact. First contact needs an email claim. An invite code only
// matters on that first call; a bad code downgrades to a plain new_user
// instead of failing the sync.
func (s *Service) Sync(
	ctx context.Context,
	identity Identity,
	inviteCode string,
) (*SyncResult, error) {
	ctx, span := core.StartSpan(ctx, "user.Sync")
	defer span.End()

	if identity.Subject == "" {
		return nil, fmt.Errorf("sync: missing subject: %w", core.ErrInvalidInput)
	}

	hasCode := core.NormalizeInviteCode(inviteCode) != ""

	existing, err := s.repo.GetByExternalID(ctx, identity.Subject)
	if err == nil {
		return s.existingResult(existing, hasCode)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, fmt.Errorf("sync: missing email: %w", core.ErrInvalidInput)
	}

	u := &User{
		ID:         uuid.New().String(),
		ExternalID: identity.Subject,
		Email:      email,
		Role:       RoleNewUser,
	}

	invite := InviteNone
	var inviteHash string
	if hasCode {
		inviteHash = core.HashInviteCode(inviteCode)
		invite = InviteRedeemed
	}

	err = s.repo.Create(ctx, u, inviteHash)
	if errors.Is(err, ErrInviteUnavailable) {
		invite = InviteInvalid
		u.Role = RoleNewUser
		err = s.repo.Create(ctx, u, "")
	}

	if errors.Is(err, core.ErrDuplicateKey) {
		// Lost a race with a concurrent first sync; the transaction rolled
		// back so the invite is still redeemable.
		winner, getErr := s.repo.GetByExternalID(ctx, identity.Subject)
		if getErr != nil {
			return nil, getErr
		}
		return s.existingResult(winner, hasCode)
	}
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	core.AddSpanEvent(ctx, "user.created",
		attribute.String("user.id", u.ID),
		attribute.String("user.role", string(u.Role)),
		attribute.String("invite.status", string(invite)),
	)
	s.logger.InfoContext(ctx, "user synced",
		"user_id", u.ID,
		"role", u.Role,
		"invite", invite,
	)

	return &SyncResult{User: u, Created: true, Invite: invite}, nil
}

func (s *Service) existingResult(u *User, hasCode bool) (*SyncResult, error) {
	if u.IsDeactivated() {
		return nil, ErrDeactivated
	}

	invite := InviteNone
	if hasCode {
		invite = InviteIgnored
	}

	return &SyncResult{User: u, Created: false, Invite: invite}, nil
}

func (s *Service) Resolve(ctx context.Context, subject string) (*User, error) {
	u, err := s.repo.GetByExternalID(ctx, subject)
	if err != nil {
		return nil, err
	}

	if u.IsDeactivated() {
		return nil, ErrDeactivated
	}

	return u, nil
}

func (s *Service) ResolveSubject(
	ctx context.Context,
	subject string,
) (*middleware.ResolvedUser, error) {
	u, err := s.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}
	return &middleware.ResolvedUser{ID: u.ID, Role: string(u.Role)}, nil
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

// MintInvite returns the plaintext code. Only its hash is stored, so this
// is the one time it can be shown.
func (s *Service) MintInvite(
	ctx context.Context,
	actor Actor,
	role Role,
) (string, *InviteCode, error) {
	if !actor.Role.CanManageUsers() {
		return "", nil, fmt.Errorf("mint invite: %w", core.ErrForbidden)
	}

	if !role.Redeemable() {
		return "", nil, fmt.Errorf(
			"mint invite: role %q cannot be granted by invite: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	code, err := core.GenerateInviteCode()
	if err != nil {
		return "", nil, fmt.Errorf("mint invite: %w", err)
	}

	createdBy := actor.ID
	invite := &InviteCode{
		CodeHash:  core.HashInviteCode(code),
		Role:      role,
		CreatedBy: &createdBy,
	}

	if err := s.repo.CreateInvite(ctx, invite); err != nil {
		return "", nil, err
	}

	s.logger.InfoContext(ctx, "invite minted",
		"created_by", actor.ID,
		"role", role,
	)

	return code, invite, nil
}

// SeedInvites stores the configured bootstrap codes. Codes already present
// are left alone, including consumed ones.
func (s *Service) SeedInvites(
	ctx context.Context,
	codes []config.BootstrapCode,
) error {
	for _, c := range codes {
		role, err := ParseRole(c.Role)
		if err != nil || !role.Redeemable() {
			return fmt.Errorf("seed invites: role %q: %w", c.Role, core.ErrInvalidInput)
		}

		inserted, err := s.repo.SeedInvite(ctx, core.HashInviteCode(c.Code), role)
		if err != nil {
			return err
		}

		if inserted {
			s.logger.InfoContext(ctx, "bootstrap invite seeded", "role", role)
		}
	}

	return nil
}

func (s *Service) UpdateRole(
	ctx context.Context,
	actor Actor,
	userID string,
	role Role,
) (*User, error) {
	if !actor.Role.CanManageUsers() {
		return nil, fmt.Errorf("update role: %w", core.ErrForbidden)
	}

	if !role.Valid() {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	if userID == actor.ID {
		return nil, fmt.Errorf("update role: cannot change own role: %w", core.ErrForbidden)
	}

	u, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "role updated",
		"actor_id", actor.ID,
		"user_id", userID,
		"role", role,
	)

	return u, nil
}

func (s *Service) Deactivate(
	ctx context.Context,
	actor Actor,
	userID string,
) error {
	if !actor.Role.CanManageUsers() {
		return fmt.Errorf("deactivate user: %w", core.ErrForbidden)
	}

	if userID == actor.ID {
		return fmt.Errorf("deactivate user: cannot deactivate self: %w", core.ErrForbidden)
	}

	if err := s.repo.Deactivate(ctx, userID); err != nil {
		return err
	}

	s.logger.WarnContext(ctx, "user deactivated",
		"actor_id", actor.ID,
		"user_id", userID,
	)

	return nil
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// EmailsByID resolves author emails for reviewer views.
func (s *Service) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	return s.repo.EmailsByID(ctx, ids)
}
