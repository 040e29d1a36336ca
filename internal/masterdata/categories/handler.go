package categories

import (
	"log/slog"
	"net/http"

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

// MountRoutes registers category routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCategoriesView, shared.PermCategoriesEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCategoriesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Patch("/{id}/restore", h.restore)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	filters, err := httpx.ParseListFilters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	categories, page, err := h.service.List(r.Context(), p, filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.List(w, categories, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	category, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, category)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in CategoryInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	category, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Created(w, category)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in CategoryInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	category, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, category)
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
	httpx.OK(w, map[string]string{"message": "category deactivated"})
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	category, err := h.service.Restore(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, category)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (shared.Principal, uuid.UUID, bool) {
	p, id, err := httpx.Target(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return p, id, false
	}
	return p, id, true
}
