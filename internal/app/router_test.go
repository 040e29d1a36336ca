package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithttp "github.com/alvarodevdoo/erp/internal/audit/http"
	"github.com/alvarodevdoo/erp/internal/auth"
	"github.com/alvarodevdoo/erp/internal/dashboard"
	"github.com/alvarodevdoo/erp/internal/inventory"
	"github.com/alvarodevdoo/erp/internal/masterdata/categories"
	"github.com/alvarodevdoo/erp/internal/masterdata/companies"
	"github.com/alvarodevdoo/erp/internal/masterdata/partners"
	"github.com/alvarodevdoo/erp/internal/masterdata/products"
	"github.com/alvarodevdoo/erp/internal/observability"
	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/roles"
	"github.com/alvarodevdoo/erp/internal/sales/orders"
	"github.com/alvarodevdoo/erp/internal/sales/quotes"
	"github.com/alvarodevdoo/erp/internal/users"
	"github.com/alvarodevdoo/erp/jobs"
)

func newTestRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := rbac.Middleware{Logger: logger}
	return NewRouter(RouterParams{
		Logger:             logger,
		Metrics:            observability.NewMetrics(),
		AuthHandler:        auth.NewHandler(logger, nil),
		CompaniesHandler:   companies.NewHandler(logger, nil, m),
		UsersHandler:       users.NewHandler(logger, nil, m),
		RolesHandler:       roles.NewHandler(logger, nil, m),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, nil, m),
		PartnersHandler:    partners.NewHandler(logger, nil, m),
		CategoriesHandler:  categories.NewHandler(logger, nil, m),
		ProductsHandler:    products.NewHandler(logger, nil, m),
		StockHandler:       inventory.NewHandler(logger, nil, m),
		QuotesHandler:      quotes.NewHandler(logger, nil, m),
		OrdersHandler:      orders.NewHandler(logger, nil, m),
		DashboardHandler:   dashboard.NewHandler(logger, nil, m),
		AuditHandler:       audithttp.NewHandler(logger, nil, m),
		JobHandler:         jobs.NewHandler(nil, logger),
	})
}

func TestRouterOperationalRoutes(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "erp_http_requests_total")
}

func TestRouterRequiresToken(t *testing.T) {
	router := newTestRouter()
	for _, path := range []string{"/api/v1/quotes", "/api/v1/orders", "/api/v1/dashboard", "/api/v1/audit-logs", "/api/v1/auth/me"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.Contains(t, rr.Body.String(), `"success":false`, path)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "route not found")
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/quotes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
