package orders

import (
	"github.com/go-chi/chi/v5"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrdersView, shared.PermOrdersEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/history", h.history)
		r.Get("/{id}/summary", h.summary)
		r.Get("/{id}/time-entries", h.listTimeEntries)
		r.Get("/{id}/expenses", h.listExpenses)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrdersCreate))
		r.Post("/", h.create)
		r.Post("/{id}/duplicate", h.duplicate)
	})
	r.With(h.rbac.RequireAll(shared.PermOrdersEdit)).Put("/{id}", h.update)
	r.With(h.rbac.RequireAll(shared.PermOrdersDelete)).Delete("/{id}", h.delete)
	r.With(h.rbac.RequireAll(shared.PermOrdersStatus)).Patch("/{id}/status", h.changeStatus)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrdersTracking))
		r.Post("/{id}/time-entries", h.addTimeEntry)
		r.Delete("/{id}/time-entries/{entryId}", h.deleteTimeEntry)
		r.Post("/{id}/expenses", h.addExpense)
		r.Delete("/{id}/expenses/{expenseId}", h.deleteExpense)
	})
}
