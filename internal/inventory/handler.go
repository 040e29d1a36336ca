package inventory

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alvarodevdoo/erp/internal/platform/httpx"
	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Handler wires HTTP endpoints for stock movements.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers stock movement routes. Movements are immutable so
// there is no update or delete.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermStockView, shared.PermStockMove))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.With(h.rbac.RequireAll(shared.PermStockMove)).Post("/", h.create)
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
	if filter.ProductID, err = httpx.QueryUUID(r, "productId"); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))); raw != "" {
		filter.Type = MovementType(raw)
		if !filter.Type.Valid() {
			httpx.RespondError(w, r, h.logger, shared.Validation("type must be one of [IN OUT ADJUSTMENT TRANSFER]"))
			return
		}
	}
	movements, page, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.List(w, movements, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, id, err := httpx.Target(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	movement, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, movement)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in MovementInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	movement, err := h.service.Record(r.Context(), p, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Created(w, movement)
}
