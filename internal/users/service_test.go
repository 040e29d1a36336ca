package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/shared"
)

type memoryRepo struct {
	users map[uuid.UUID]User
	roles map[uuid.UUID]RoleRef
	owner map[uuid.UUID]uuid.UUID
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[uuid.UUID]User{}, roles: map[uuid.UUID]RoleRef{}, owner: map[uuid.UUID]uuid.UUID{}}
}

func (m *memoryRepo) addRole(companyID uuid.UUID, name string) uuid.UUID {
	id := uuid.New()
	m.roles[id] = RoleRef{ID: id, Name: name}
	m.owner[id] = companyID
	return id
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(ctx context.Context, companyID uuid.UUID, filters shared.ListFilters) ([]User, int, error) {
	var out []User
	for _, u := range m.users {
		if u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok || u.CompanyID != companyID {
		return nil, shared.NotFound("user")
	}
	return &u, nil
}

func (m *memoryRepo) EmailExists(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	for _, u := range m.users {
		if u.ID != exclude && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) Create(ctx context.Context, user User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, user User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memoryRepo) SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error {
	u, ok := m.users[id]
	if !ok || u.CompanyID != companyID {
		return shared.NotFound("user")
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

func (m *memoryRepo) SetRoles(ctx context.Context, companyID, id uuid.UUID, roleIDs []uuid.UUID) error {
	u := m.users[id]
	u.Roles = []RoleRef{}
	for _, rid := range roleIDs {
		if m.owner[rid] == companyID {
			u.Roles = append(u.Roles, m.roles[rid])
		}
	}
	m.users[id] = u
	return nil
}

func (m *memoryRepo) CountRoles(ctx context.Context, companyID uuid.UUID, roleIDs []uuid.UUID) (int, error) {
	n := 0
	for _, rid := range roleIDs {
		if m.owner[rid] == companyID {
			n++
		}
	}
	return n, nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, nil, nil, nil)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestCreateUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := shared.Principal{UserID: uuid.New(), CompanyID: uuid.New()}
	roleID := repo.addRole(p.CompanyID, "Admin")

	user, err := svc.Create(context.Background(), p, CreateInput{Name: "Bia", Email: " Bia@Grafica.test ", Password: "secret1", RoleIDs: []uuid.UUID{roleID, roleID}})
	require.NoError(t, err)
	assert.Equal(t, "bia@grafica.test", user.Email)
	assert.True(t, user.IsActive)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, "Admin", user.Roles[0].Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	_, err = svc.Create(context.Background(), shared.Principal{CompanyID: uuid.New()}, CreateInput{Name: "Other", Email: "BIA@grafica.test", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrConflict, "emails are unique across companies")
}

func TestCreateUserRejectsForeignRole(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := shared.Principal{CompanyID: uuid.New()}
	foreign := repo.addRole(uuid.New(), "Admin")

	_, err := svc.Create(context.Background(), p, CreateInput{Name: "Bia", Email: "bia@grafica.test", Password: "secret1", RoleIDs: []uuid.UUID{foreign}})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteAndRestoreUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := shared.Principal{UserID: uuid.New(), CompanyID: uuid.New()}

	user, err := svc.Create(context.Background(), p, CreateInput{Name: "Bia", Email: "bia@grafica.test", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), p, user.ID))
	got, err := svc.Get(context.Background(), p, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	restored, err := svc.Restore(context.Background(), p, user.ID)
	require.NoError(t, err)
	assert.True(t, restored.IsActive)

	self := shared.Principal{UserID: user.ID, CompanyID: p.CompanyID}
	assert.ErrorIs(t, svc.Delete(context.Background(), self, user.ID), shared.ErrConflict)
}

func TestUpdateKeepsPasswordWhenEmpty(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := shared.Principal{CompanyID: uuid.New()}

	user, err := svc.Create(context.Background(), p, CreateInput{Name: "Bia", Email: "bia@grafica.test", Password: "secret1"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), p, user.ID, UpdateInput{Name: "Beatriz", Email: "bia@grafica.test"})
	require.NoError(t, err)
	assert.Equal(t, "Beatriz", updated.Name)
	assert.Equal(t, user.PasswordHash, updated.PasswordHash)
}

type allowAll struct{}

func (allowAll) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	return shared.AllScopes(), nil
}

func TestCreateHandlerDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := shared.Principal{UserID: uuid.New(), CompanyID: uuid.New()}
	_, err := svc.Create(context.Background(), p, CreateInput{Name: "Bia", Email: "bia@grafica.test", Password: "secret1"})
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), p)))
		})
	})
	router.Route("/users", NewHandler(nil, svc, rbac.Middleware{Service: allowAll{}}).MountRoutes)

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"Bia 2","email":"bia@grafica.test","password":"secret1"}`))
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), `"success":false`)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"pagination":{"page":1,"limit":10,"total":1,"totalPages":1}`)
}
