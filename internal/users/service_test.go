package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
)

type memoryRepo struct {
	users map[int64]User
}

func newMemoryRepo(users ...User) *memoryRepo {
	repo := &memoryRepo{users: make(map[int64]User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memoryRepo) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) UpdateRole(ctx context.Context, id int64, role authz.Role) error {
	u := m.users[id]
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memoryRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u := m.users[id]
	u.IsActive = active
	m.users[id] = u
	return nil
}

func (m *memoryRepo) ReplaceOverrides(ctx context.Context, id int64, permissions []string) error {
	u := m.users[id]
	u.Overrides = permissions
	m.users[id] = u
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func actor(id int64, role authz.Role) *authz.Principal {
	return &authz.Principal{ID: id, Role: role, Active: true}
}

func TestChangeRoleWithinHierarchy(t *testing.T) {
	repo := newMemoryRepo(User{ID: 2, Role: authz.RoleEmployee, IsActive: true})
	audit := &recordingAudit{}
	inv := &countingInvalidator{}
	svc := NewService(repo, audit, inv, nil)

	require.NoError(t, svc.ChangeRole(context.Background(), actor(1, authz.RoleManager), 2, authz.RoleAgent))

	got, _ := repo.Get(context.Background(), 2)
	assert.Equal(t, authz.RoleAgent, got.Role)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditRoleChanged, audit.logs[0].Action)
	assert.Equal(t, 1, inv.calls)
}

func TestChangeRoleCannotElevatePastOwnLevel(t *testing.T) {
	repo := newMemoryRepo(User{ID: 2, Role: authz.RoleAgent, IsActive: true})
	svc := NewService(repo, nil, nil, nil)

	// A manager cannot mint another manager, let alone an admin.
	err := svc.ChangeRole(context.Background(), actor(1, authz.RoleManager), 2, authz.RoleManager)
	assert.ErrorIs(t, err, ErrNotManageable)

	err = svc.ChangeRole(context.Background(), actor(1, authz.RoleManager), 2, authz.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotManageable)

	got, _ := repo.Get(context.Background(), 2)
	assert.Equal(t, authz.RoleAgent, got.Role)
}

func TestChangeRoleCannotTouchPeerOrSuperior(t *testing.T) {
	repo := newMemoryRepo(
		User{ID: 2, Role: authz.RoleManager, IsActive: true},
		User{ID: 3, Role: authz.RoleAdmin, IsActive: true},
	)
	svc := NewService(repo, nil, nil, nil)

	assert.ErrorIs(t, svc.ChangeRole(context.Background(), actor(1, authz.RoleManager), 2, authz.RoleAgent), ErrNotManageable)
	assert.ErrorIs(t, svc.ChangeRole(context.Background(), actor(1, authz.RoleManager), 3, authz.RoleAgent), ErrNotManageable)
}

func TestChangeRoleRejectsSelf(t *testing.T) {
	repo := newMemoryRepo(User{ID: 1, Role: authz.RoleAdmin, IsActive: true})
	svc := NewService(repo, nil, nil, nil)

	assert.ErrorIs(t, svc.ChangeRole(context.Background(), actor(1, authz.RoleAdmin), 1, authz.RoleClient), ErrSelfChange)
}

func TestChangeRoleRejectsUnknownRole(t *testing.T) {
	repo := newMemoryRepo(User{ID: 2, Role: authz.RoleAgent, IsActive: true})
	svc := NewService(repo, nil, nil, nil)

	require.Error(t, svc.ChangeRole(context.Background(), actor(1, authz.RoleAdmin), 2, authz.Role("owner")))
}

func TestSetActiveAuditsAndFlushes(t *testing.T) {
	repo := newMemoryRepo(User{ID: 2, Role: authz.RoleAgent, IsActive: true})
	audit := &recordingAudit{}
	inv := &countingInvalidator{}
	svc := NewService(repo, audit, inv, nil)

	require.NoError(t, svc.SetActive(context.Background(), actor(1, authz.RoleAdmin), 2, false))

	got, _ := repo.Get(context.Background(), 2)
	assert.False(t, got.IsActive)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditUserDeactivated, audit.logs[0].Action)
	assert.Equal(t, 1, inv.calls)
}

func TestSetActiveNoopSkipsAuditAndFlush(t *testing.T) {
	repo := newMemoryRepo(User{ID: 2, Role: authz.RoleAgent, IsActive: true})
	audit := &recordingAudit{}
	inv := &countingInvalidator{}
	svc := NewService(repo, audit, inv, nil)

	require.NoError(t, svc.SetActive(context.Background(), actor(1, authz.RoleAdmin), 2, true))
	assert.Empty(t, audit.logs)
	assert.Equal(t, 0, inv.calls)
}

func TestSetOverridesValidatesPermissions(t *testing.T) {
	repo := newMemoryRepo(User{ID: 2, Role: authz.RoleEmployee, IsActive: true})
	svc := NewService(repo, nil, nil, nil)

	err := svc.SetOverrides(context.Background(), actor(1, authz.RoleAdmin), 2, []string{"magic:everything"})
	require.Error(t, err)

	require.NoError(t, svc.SetOverrides(context.Background(), actor(1, authz.RoleAdmin), 2, []string{authz.PermPropertiesRead}))
	got, _ := repo.Get(context.Background(), 2)
	assert.Equal(t, []string{authz.PermPropertiesRead}, got.Overrides)
}
