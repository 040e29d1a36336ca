package partners

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/platform/httpx"
	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Handler exposes partner endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers partner routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPartnersView, shared.PermPartnersEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.With(h.rbac.RequireAll(shared.PermPartnersCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAll(shared.PermPartnersEdit)).Put("/{id}", h.update)
	r.With(h.rbac.RequireAll(shared.PermPartnersDelete)).Delete("/{id}", h.delete)
	r.With(h.rbac.RequireAll(shared.PermPartnersDelete)).Patch("/{id}/restore", h.restore)
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
	filter := ListFilter{ListFilters: filters}
	if raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))); raw != "" {
		filter.Type = Type(raw)
		if !filter.Type.Valid() {
			httpx.RespondError(w, r, h.logger, shared.Validation("type must be one of [CUSTOMER SUPPLIER BOTH]"))
			return
		}
	}
	partners, page, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.List(w, partners, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	partner, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, partner)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in PartnerInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	partner, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Created(w, partner)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in PartnerInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	partner, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, partner)
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
	httpx.OK(w, map[string]string{"message": "partner deactivated"})
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	partner, err := h.service.Restore(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, partner)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (shared.Principal, uuid.UUID, bool) {
	p, id, err := httpx.Target(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return p, id, false
	}
	return p, id, true
}
