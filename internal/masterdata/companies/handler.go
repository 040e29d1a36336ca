package companies

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/platform/httpx"
	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Handler exposes company endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers company routes. Without companies.manage a user only
// sees its own company.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCompaniesView, shared.PermCompaniesManage))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCompaniesManage))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Patch("/{id}/restore", h.restore)
	})
}

func (h *Handler) scope(r *http.Request, p shared.Principal) (*uuid.UUID, error) {
	global, err := h.rbac.Granted(r, shared.PermCompaniesManage)
	if err != nil {
		return nil, shared.Internal(err)
	}
	if global {
		return nil, nil
	}
	return &p.CompanyID, nil
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
	scope, err := h.scope(r, p)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	companies, page, err := h.service.List(r.Context(), scope, filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.List(w, companies, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	scope, err := h.scope(r, p)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if scope != nil && *scope != id {
		httpx.RespondError(w, r, h.logger, shared.NotFound("company"))
		return
	}
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, company)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	company, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Created(w, company)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in CompanyInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	company, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, company)
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
	httpx.OK(w, map[string]string{"message": "company deactivated"})
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	company, err := h.service.Restore(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, company)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (shared.Principal, uuid.UUID, bool) {
	p, id, err := httpx.Target(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return p, id, false
	}
	return p, id, true
}
