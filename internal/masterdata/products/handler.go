package products

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/platform/httpx"
	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProductsView, shared.PermProductsEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.With(h.rbac.RequireAny(shared.PermStockView, shared.PermProductsView)).Get("/{id}/stock", h.stock)
	r.With(h.rbac.RequireAll(shared.PermProductsCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAll(shared.PermProductsEdit)).Put("/{id}", h.update)
	r.With(h.rbac.RequireAll(shared.PermProductsDelete)).Delete("/{id}", h.delete)
	r.With(h.rbac.RequireAll(shared.PermProductsDelete)).Patch("/{id}/restore", h.restore)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	products, page, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.List(w, products, page)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	filters, err := httpx.ParseListFilters(r)
	if err != nil {
		return ListFilter{}, err
	}
	filter := ListFilter{ListFilters: filters}
	if filter.CategoryID, err = httpx.QueryUUID(r, "categoryId"); err != nil {
		return filter, err
	}
	low, err := httpx.QueryBool(r, "lowStock")
	if err != nil {
		return filter, err
	}
	filter.LowStock = low != nil && *low
	return filter, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, product)
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	at := time.Now().UTC()
	requested, err := httpx.QueryTime(r, "at")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if requested != nil {
		at = *requested
	}
	balance, err := h.service.StockAt(r.Context(), p, id, at)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, balance)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in ProductInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	product, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Created(w, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in ProductInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	product, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, product)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), p, id); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, map[string]string{"message": "product deactivated"})
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	product, err := h.service.Restore(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, product)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (shared.Principal, uuid.UUID, bool) {
	p, id, err := httpx.Target(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return p, id, false
	}
	return p, id, true
}
