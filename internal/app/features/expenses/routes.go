// internal/app/features/expenses/routes.go
package expenses

import "github.com/go-chi/chi/v5"

// Routes serves /api/expenses. The family pool list is ServeFamilyList,
// mounted by the family feature.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/stats", h.ServeStats)
	r.Post("/", h.HandleCreate)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
