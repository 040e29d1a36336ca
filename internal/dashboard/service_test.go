package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarodevdoo/erp/internal/inventory"
	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/shared"
)

type fakeRepo struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRepo) QuotesByStatus(ctx context.Context, companyID uuid.UUID) (map[string]int, error) {
	f.calls.Add(1)
	return map[string]int{"DRAFT": 2, "CONVERTED": 3, "REJECTED": 1}, f.err
}

func (f *fakeRepo) OrdersByStatus(ctx context.Context, companyID uuid.UUID) (map[string]int, error) {
	return map[string]int{"PENDING": 1, "IN_PROGRESS": 2}, nil
}

func (f *fakeRepo) OrderTotals(ctx context.Context, companyID uuid.UUID, now, monthStart time.Time) (OrderTotals, error) {
	return OrderTotals{OpenValue: decimal.NewFromInt(150), Overdue: 1, CompletedThisMonth: decimal.NewFromInt(80)}, nil
}

type fakeStock struct{ limit int }

func (f *fakeStock) LowStock(ctx context.Context, companyID *uuid.UUID, limit int) ([]inventory.LowStockProduct, error) {
	f.limit = limit
	return []inventory.LowStockProduct{{
		ProductID: uuid.New(), CompanyID: *companyID, SKU: "PAP-A4", Name: "Papel A4",
		Stock: decimal.NewFromInt(2), MinStock: decimal.NewFromInt(10),
	}}, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *fakeStock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	stock := &fakeStock{}
	svc := NewService(repo, stock, NewCache(client, time.Minute, nil), 0, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, stock, mr
}

func TestKPIsAreCached(t *testing.T) {
	repo := &fakeRepo{}
	svc, stock, mr := newTestService(t, repo)
	company := uuid.New()

	kpis, err := svc.KPIs(context.Background(), company, false)
	require.NoError(t, err)
	assert.Equal(t, DefaultLowStockLimit, stock.limit)
	assert.Equal(t, 6, kpis.Quotes.Total)
	assert.Equal(t, 0, kpis.Quotes.ByStatus["SENT"])
	assert.True(t, decimal.NewFromInt(75).Equal(kpis.Quotes.ConversionRate))
	assert.Equal(t, 3, kpis.Orders.Total)
	assert.Equal(t, 0, kpis.Orders.ByStatus["CANCELLED"])
	assert.True(t, decimal.NewFromInt(150).Equal(kpis.Totals.OpenValue))
	require.Len(t, kpis.LowStock, 1)
	assert.Equal(t, "PAP-A4", kpis.LowStock[0].SKU)
	assert.True(t, mr.Exists(keyKPI(company)))

	_, err = svc.KPIs(context.Background(), company, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, repo.calls.Load())

	_, err = svc.KPIs(context.Background(), company, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, repo.calls.Load())

	_, err = svc.KPIs(context.Background(), uuid.New(), false)
	require.NoError(t, err)
	assert.EqualValues(t, 3, repo.calls.Load())
}

func TestKPIsPropagateErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("boom")}
	svc, _, mr := newTestService(t, repo)
	company := uuid.New()

	_, err := svc.KPIs(context.Background(), company, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quotes by status")
	assert.False(t, mr.Exists(keyKPI(company)))
}

func TestKPIsServedWhenRedisFails(t *testing.T) {
	repo := &fakeRepo{}
	svc, _, mr := newTestService(t, repo)
	mr.SetError("READONLY redis unavailable")

	for i := 0; i < 2; i++ {
		kpis, err := svc.KPIs(context.Background(), uuid.New(), i == 1)
		require.NoError(t, err)
		assert.Equal(t, 6, kpis.Quotes.Total)
	}
	assert.EqualValues(t, 2, repo.calls.Load())

	mr.SetError("")
	company := uuid.New()
	_, err := svc.KPIs(context.Background(), company, false)
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyKPI(company)))
}

func TestKPIsWithoutCache(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, &fakeStock{}, nil, 5, nil)
	for i := 0; i < 2; i++ {
		_, err := svc.KPIs(context.Background(), uuid.New(), false)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, repo.calls.Load())
}

type allowAll struct{}

func (allowAll) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	return shared.AllScopes(), nil
}

type denyAll struct{}

func (denyAll) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	return nil, nil
}

func TestDashboardHandler(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeRepo{})
	p := shared.Principal{UserID: uuid.New(), CompanyID: uuid.New()}
	route := func(checker rbac.PermissionChecker) chi.Router {
		router := chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), p)))
			})
		})
		router.Route("/dashboard", NewHandler(nil, svc, rbac.Middleware{Service: checker}).MountRoutes)
		return router
	}

	res := httptest.NewRecorder()
	route(allowAll{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"success":true`)
	assert.Contains(t, res.Body.String(), `"conversionRate"`)

	res = httptest.NewRecorder()
	route(allowAll{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/dashboard?refresh=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = httptest.NewRecorder()
	route(denyAll{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusForbidden, res.Code)
}
