// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notbyai-space/curation-api/internal/config"
	"github.com/notbyai-space/curation-api/internal/core"
)

type memRepo struct {
	mu      sync.Mutex
	users   map[string]*User
	invites map[string]*InviteCode
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:   make(map[string]*User),
		invites: make(map[string]*InviteCode),
	}
}

func (m *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) GetByExternalID(_ context.Context, externalID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) Create(_ context.Context, u *User, inviteHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.ExternalID == u.ExternalID {
			return core.ErrDuplicateKey
		}
	}

	if inviteHash != "" {
		inv, ok := m.invites[inviteHash]
		if !ok || inv.ConsumedAt != nil {
			return ErrInviteUnavailable
		}
		now := time.Now()
		consumer := u.ID
		inv.ConsumedAt = &now
		inv.ConsumedBy = &consumer
		u.Role = inv.Role
	}

	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) UpdateRole(_ context.Context, id string, role Role) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

func (m *memRepo) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	now := time.Now()
	u.DeactivatedAt = &now
	return nil
}

func (m *memRepo) CreateInvite(_ context.Context, inv *InviteCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invites[inv.CodeHash]; ok {
		return core.ErrDuplicateKey
	}
	inv.CreatedAt = time.Now()
	cp := *inv
	m.invites[inv.CodeHash] = &cp
	return nil
}

func (m *memRepo) SeedInvite(_ context.Context, codeHash string, role Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invites[codeHash]; ok {
		return false, nil
	}
	m.invites[codeHash] = &InviteCode{CodeHash: codeHash, Role: role}
	return true, nil
}

func (m *memRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memRepo) EmailsByID(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u.Email
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	return NewService(repo, nil), repo
}

func TestSync_CreatesNewUser(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Sync(context.Background(), Identity{Subject: "sub-a", Email: "A@Example.com"}, "")
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, RoleNewUser, res.User.Role)
	assert.Equal(t, "a@example.com", res.User.Email)
	assert.Equal(t, InviteNone, res.Invite)
}

func TestSync_IsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	first, err := svc.Sync(ctx, Identity{Subject: "sub-a", Email: "sub-a@example.com"}, "")
	require.NoError(t, err)

	second, err := svc.Sync(ctx, Identity{Subject: "sub-a", Email: "sub-a@example.com"}, "")
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)

	n, _ := repo.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestSync_InviteGrantsRoleOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedInvites(ctx, []config.BootstrapCode{
		{Code: "mod-code-1", Role: "moderator"},
	}))

	res, err := svc.Sync(ctx, Identity{Subject: "sub-a", Email: "sub-a@example.com"}, "MOD-CODE-1")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, res.User.Role)
	assert.Equal(t, InviteRedeemed, res.Invite)

	res, err = svc.Sync(ctx, Identity{Subject: "sub-b", Email: "sub-b@example.com"}, "mod-code-1")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, RoleNewUser, res.User.Role)
	assert.Equal(t, InviteInvalid, res.Invite)
}

func TestSync_BadInviteIsSoftFailure(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Sync(context.Background(), Identity{Subject: "sub-a", Email: "sub-a@example.com"}, "nope")
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, RoleNewUser, res.User.Role)
	assert.Equal(t, InviteInvalid, res.Invite)
}

func TestSync_ExistingUserIgnoresInvite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedInvites(ctx, []config.BootstrapCode{
		{Code: "seed-code", Role: "seed_user"},
	}))

	_, err := svc.Sync(ctx, Identity{Subject: "sub-a", Email: "sub-a@example.com"}, "")
	require.NoError(t, err)

	res, err := svc.Sync(ctx, Identity{Subject: "sub-a", Email: "sub-a@example.com"}, "seed-code")
	require.NoError(t, err)
	assert.Equal(t, RoleNewUser, res.User.Role)
	assert.Equal(t, InviteIgnored, res.Invite)

	other, err := svc.Sync(ctx, Identity{Subject: "sub-b", Email: "sub-b@example.com"}, "seed-code")
	require.NoError(t, err)
	assert.Equal(t, RoleSeedUser, other.User.Role)
}

func TestSync_ConcurrentFirstSyncCreatesOneUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Sync(ctx, Identity{Subject: "sub-race", Email: "sub-race@example.com"}, "")
			if assert.NoError(t, err) {
				ids[i] = res.User.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	n, _ := repo.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestSync_MissingSubject(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Sync(context.Background(), Identity{}, "")
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestResolve_Deactivated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod, err := svc.Sync(ctx, Identity{Subject: "sub-mod", Email: "sub-mod@example.com"}, "")
	require.NoError(t, err)
	target, err := svc.Sync(ctx, Identity{Subject: "sub-t", Email: "sub-t@example.com"}, "")
	require.NoError(t, err)

	actor := Actor{ID: mod.User.ID, Role: RoleModerator}
	require.NoError(t, svc.Deactivate(ctx, actor, target.User.ID))

	_, err = svc.Resolve(ctx, "sub-t")
	require.ErrorIs(t, err, ErrDeactivated)
	require.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.Sync(ctx, Identity{Subject: "sub-t", Email: "sub-t@example.com"}, "")
	require.ErrorIs(t, err, ErrDeactivated)

	_, err = svc.ResolveSubject(ctx, "sub-unknown")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestMintInvite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.MintInvite(ctx, Actor{ID: "x", Role: RoleSeedUser}, RoleSeedUser)
	require.ErrorIs(t, err, core.ErrForbidden)

	mod := Actor{ID: "m", Role: RoleModerator}
	_, _, err = svc.MintInvite(ctx, mod, RoleNewUser)
	require.ErrorIs(t, err, core.ErrInvalidInput)

	code, inv, err := svc.MintInvite(ctx, mod, RoleSeedUser)
	require.NoError(t, err)
	assert.Equal(t, core.HashInviteCode(code), inv.CodeHash)

	res, err := svc.Sync(ctx, Identity{Subject: "sub-new", Email: "sub-new@example.com"}, code)
	require.NoError(t, err)
	assert.Equal(t, RoleSeedUser, res.User.Role)
}

func TestUpdateRole_Rules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target, err := svc.Sync(ctx, Identity{Subject: "sub-t", Email: "sub-t@example.com"}, "")
	require.NoError(t, err)

	mod := Actor{ID: "mod-1", Role: RoleModerator}

	_, err = svc.UpdateRole(ctx, Actor{ID: "s", Role: RoleSeedUser}, target.User.ID, RoleSeedUser)
	require.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.UpdateRole(ctx, mod, mod.ID, RoleNewUser)
	require.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.UpdateRole(ctx, mod, target.User.ID, Role("admin"))
	require.ErrorIs(t, err, core.ErrInvalidInput)

	u, err := svc.UpdateRole(ctx, mod, target.User.ID, RoleSeedUser)
	require.NoError(t, err)
	assert.Equal(t, RoleSeedUser, u.Role)

	require.ErrorIs(t, svc.Deactivate(ctx, mod, mod.ID), core.ErrForbidden)
}

func TestRole_Permissions(t *testing.T) {
	assert.False(t, RoleNewUser.CanReview())
	assert.True(t, RoleSeedUser.CanReview())
	assert.True(t, RoleModerator.CanReview())
	assert.False(t, RoleSeedUser.CanManageUsers())
	assert.True(t, RoleModerator.CanManageUsers())

	_, err := ParseRole("root")
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSync_FirstContactNeedsEmail(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	_, err := svc.Sync(ctx, Identity{Subject: "sub-quiet", Email: "  "}, "")
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Sync(ctx, Identity{Subject: "sub-quiet", Email: "quiet@example.com"}, "")
	require.NoError(t, err)

	res, err := svc.Sync(ctx, Identity{Subject: "sub-quiet"}, "")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "quiet@example.com", res.User.Email)
}
