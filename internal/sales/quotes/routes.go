package quotes

import (
	"github.com/go-chi/chi/v5"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// MountRoutes registers quote routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermQuotesView, shared.PermQuotesEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/pdf", h.pdf)
		r.Get("/{id}/history", h.history)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotesCreate))
		r.Post("/", h.create)
		r.Post("/{id}/duplicate", h.duplicate)
	})
	r.With(h.rbac.RequireAll(shared.PermQuotesEdit)).Put("/{id}", h.update)
	r.With(h.rbac.RequireAll(shared.PermQuotesDelete)).Delete("/{id}", h.delete)
	r.With(h.rbac.RequireAll(shared.PermQuotesStatus)).Patch("/{id}/status", h.changeStatus)
	r.With(h.rbac.RequireAll(shared.PermQuotesConvert, shared.PermOrdersCreate)).Post("/{id}/convert-to-order", h.convert)
}
