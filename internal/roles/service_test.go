package roles

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarodevdoo/erp/internal/shared"
)

type memoryRepo struct {
	roles    map[uuid.UUID]Role
	assigned map[uuid.UUID]int
	catalog  map[string]struct{}
}

func newMemoryRepo() *memoryRepo {
	catalog := map[string]struct{}{}
	for _, p := range shared.AllScopes() {
		catalog[p] = struct{}{}
	}
	return &memoryRepo{roles: map[uuid.UUID]Role{}, assigned: map[uuid.UUID]int{}, catalog: catalog}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(ctx context.Context, companyID uuid.UUID, filters shared.ListFilters) ([]Role, int, error) {
	var out []Role
	for _, r := range m.roles {
		if r.CompanyID == companyID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*Role, error) {
	r, ok := m.roles[id]
	if !ok || r.CompanyID != companyID {
		return nil, shared.NotFound("role")
	}
	return &r, nil
}

func (m *memoryRepo) NameExists(ctx context.Context, companyID uuid.UUID, name string, exclude uuid.UUID) (bool, error) {
	for _, r := range m.roles {
		if r.CompanyID == companyID && r.ID != exclude && strings.EqualFold(r.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) Create(ctx context.Context, role Role) error {
	m.roles[role.ID] = role
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, role Role) error {
	m.roles[role.ID] = role
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	delete(m.roles, id)
	return nil
}

func (m *memoryRepo) CountUsers(ctx context.Context, id uuid.UUID) (int, error) {
	return m.assigned[id], nil
}

func (m *memoryRepo) SetPermissions(ctx context.Context, id uuid.UUID, perms []string) error {
	r := m.roles[id]
	r.Permissions = perms
	m.roles[id] = r
	return nil
}

func (m *memoryRepo) KnownPermissions(ctx context.Context, names []string) ([]string, error) {
	var known []string
	for _, n := range names {
		if _, ok := m.catalog[n]; ok {
			known = append(known, n)
		}
	}
	return known, nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context, companyID uuid.UUID) { c.calls++ }

func principal() shared.Principal {
	return shared.Principal{UserID: uuid.New(), CompanyID: uuid.New()}
}

func TestCreateRole(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &countingInvalidator{}, nil, nil)
	p := principal()

	role, err := svc.Create(context.Background(), p, RoleInput{Name: " Vendas ", Permissions: []string{"quotes.view", "Quotes.View", "orders.view"}})
	require.NoError(t, err)
	assert.Equal(t, "Vendas", role.Name)
	assert.Equal(t, []string{"orders.view", "quotes.view"}, role.Permissions)
	assert.Equal(t, p.CompanyID, role.CompanyID)

	_, err = svc.Create(context.Background(), p, RoleInput{Name: "vendas"})
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Create(context.Background(), principal(), RoleInput{Name: "Vendas"})
	assert.NoError(t, err, "same name in another company")
}

func TestCreateRoleRejectsUnknownPermission(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	_, err := svc.Create(context.Background(), principal(), RoleInput{Name: "Ops", Permissions: []string{"quotes.view", "root.everything"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "root.everything")
}

func TestSetPermissionsInvalidatesCache(t *testing.T) {
	repo := newMemoryRepo()
	cache := &countingInvalidator{}
	svc := NewService(repo, cache, nil, nil)
	p := principal()

	role, err := svc.Create(context.Background(), p, RoleInput{Name: "Ops"})
	require.NoError(t, err)

	updated, err := svc.SetPermissions(context.Background(), p, role.ID, []string{"stock.move"})
	require.NoError(t, err)
	assert.Equal(t, []string{"stock.move"}, updated.Permissions)
	assert.Equal(t, 1, cache.calls)

	_, err = svc.SetPermissions(context.Background(), principal(), role.ID, []string{"stock.move"})
	assert.ErrorIs(t, err, shared.ErrNotFound, "other tenants cannot see the role")
}

func TestDeleteRoleInUse(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	p := principal()

	role, err := svc.Create(context.Background(), p, RoleInput{Name: "Ops"})
	require.NoError(t, err)
	repo.assigned[role.ID] = 2

	err = svc.Delete(context.Background(), p, role.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)

	repo.assigned[role.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), p, role.ID))
	_, err = svc.Get(context.Background(), p, role.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
