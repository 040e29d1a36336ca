package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarodevdoo/erp/internal/shared"
)

type fakeStore struct {
	mu    sync.Mutex
	perms map[uuid.UUID][]string
	calls int
	err   error
}

func (f *fakeStore) UserPermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]string{}, f.perms[userID]...), nil
}

func (f *fakeStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	return Catalog(), nil
}

func (f *fakeStore) EnsurePermissions(ctx context.Context, perms []Permission) error {
	return nil
}

func (f *fakeStore) set(userID uuid.UUID, perms ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms[userID] = perms
}

func newCachedService(t *testing.T, store Store) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(store, client, time.Minute, nil)
}

func TestEffectivePermissionsCachesPerUser(t *testing.T) {
	companyID, userID := uuid.New(), uuid.New()
	store := &fakeStore{perms: map[uuid.UUID][]string{}}
	store.set(userID, "quotes.view")
	svc := newCachedService(t, store)
	ctx := context.Background()

	perms, err := svc.EffectivePermissions(ctx, companyID, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"quotes.view"}, perms)

	store.set(userID, "quotes.view", "quotes.edit")
	perms, err = svc.EffectivePermissions(ctx, companyID, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"quotes.view"}, perms, "served from cache")
	assert.Equal(t, 1, store.calls)

	svc.Invalidate(ctx, companyID)
	perms, err = svc.EffectivePermissions(ctx, companyID, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"quotes.view", "quotes.edit"}, perms)
	assert.Equal(t, 2, store.calls)
}

func TestEffectivePermissionsWithoutCache(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{perms: map[uuid.UUID][]string{userID: {"orders.view"}}}
	svc := NewService(store, nil, time.Minute, nil)

	for i := 0; i < 3; i++ {
		perms, err := svc.EffectivePermissions(context.Background(), uuid.New(), userID)
		require.NoError(t, err)
		assert.Equal(t, []string{"orders.view"}, perms)
	}
	assert.Equal(t, 3, store.calls)
}

func TestEffectivePermissionsError(t *testing.T) {
	store := &fakeStore{perms: map[uuid.UUID][]string{}, err: errors.New("boom")}
	svc := newCachedService(t, store)

	_, err := svc.EffectivePermissions(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
}

func TestCatalogCoversAllScopes(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, len(shared.AllScopes()))
	for _, p := range catalog {
		assert.NotEmpty(t, p.Description, p.Name)
	}
	assert.Equal(t, "View quotes", describe(shared.PermQuotesView))
}

type staticChecker struct {
	perms []string
	err   error
}

func (s staticChecker) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	return s.perms, s.err
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, withPrincipal bool) int {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if withPrincipal {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: uuid.New(), CompanyID: uuid.New()}))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestMiddleware(t *testing.T) {
	granted := Middleware{Service: staticChecker{perms: []string{"Quotes.View", "orders.view"}}}
	failing := Middleware{Service: staticChecker{err: errors.New("db down")}}

	tests := []struct {
		name          string
		mw            func(http.Handler) http.Handler
		withPrincipal bool
		want          int
	}{
		{"any granted", granted.RequireAny("quotes.view", "quotes.edit"), true, http.StatusNoContent},
		{"any denied", granted.RequireAny("users.edit"), true, http.StatusForbidden},
		{"all granted", granted.RequireAll("quotes.view", "orders.view"), true, http.StatusNoContent},
		{"all partially granted", granted.RequireAll("quotes.view", "quotes.edit"), true, http.StatusForbidden},
		{"no principal", granted.RequireAny("quotes.view"), false, http.StatusUnauthorized},
		{"empty requirement", granted.RequireAny(" "), false, http.StatusNoContent},
		{"lookup failure", failing.RequireAny("quotes.view"), true, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(t, tt.mw, tt.withPrincipal))
		})
	}
}

func TestNormalizePermissions(t *testing.T) {
	assert.Equal(t, []string{"quotes.view", "orders.view"}, normalizePermissions([]string{" Quotes.View", "orders.view", "quotes.view", ""}))
}
