package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/alvarodevdoo/erp/internal/audit/http"
	"github.com/alvarodevdoo/erp/internal/auth"
	"github.com/alvarodevdoo/erp/internal/dashboard"
	"github.com/alvarodevdoo/erp/internal/inventory"
	"github.com/alvarodevdoo/erp/internal/masterdata/categories"
	"github.com/alvarodevdoo/erp/internal/masterdata/companies"
	"github.com/alvarodevdoo/erp/internal/masterdata/partners"
	"github.com/alvarodevdoo/erp/internal/masterdata/products"
	"github.com/alvarodevdoo/erp/internal/observability"
	"github.com/alvarodevdoo/erp/internal/platform/httpx"
	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/roles"
	"github.com/alvarodevdoo/erp/internal/sales/orders"
	"github.com/alvarodevdoo/erp/internal/sales/quotes"
	"github.com/alvarodevdoo/erp/internal/users"
	"github.com/alvarodevdoo/erp/jobs"
)

// APIPrefix is the versioned base path of the REST API.
const APIPrefix = "/api/v1"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	AuthService        *auth.Service
	AuthHandler        *auth.Handler
	CompaniesHandler   *companies.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	PartnersHandler    *partners.Handler
	CategoriesHandler  *categories.Handler
	ProductsHandler    *products.Handler
	StockHandler       *inventory.Handler
	QuotesHandler      *quotes.Handler
	OrdersHandler      *orders.Handler
	DashboardHandler   *dashboard.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route(APIPrefix, func(api chi.Router) {
		if params.AuthHandler != nil {
			api.Route("/auth", params.AuthHandler.MountRoutes)
		}
		api.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(params.AuthService, params.Logger))
			pr.Route("/companies", params.CompaniesHandler.MountRoutes)
			pr.Route("/users", params.UsersHandler.MountRoutes)
			pr.Route("/roles", params.RolesHandler.MountRoutes)
			pr.Route("/permissions", params.PermissionsHandler.MountRoutes)
			pr.Route("/partners", params.PartnersHandler.MountRoutes)
			pr.Route("/categories", params.CategoriesHandler.MountRoutes)
			pr.Route("/products", params.ProductsHandler.MountRoutes)
			pr.Route("/stock-movements", params.StockHandler.MountRoutes)
			pr.Route("/quotes", params.QuotesHandler.MountRoutes)
			pr.Route("/orders", params.OrdersHandler.MountRoutes)
			pr.Route("/dashboard", params.DashboardHandler.MountRoutes)
			pr.Route("/audit-logs", params.AuditHandler.MountRoutes)
		})
	})

	return r
}
