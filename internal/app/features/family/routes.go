// internal/app/features/family/routes.go
package family

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes serves /api/family. listExpenses handles GET /expenses; it lives
// with the expenses feature.
func Routes(h *Handler, listExpenses http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Get("/details", h.ServeDetails)
	r.Get("/members", h.ServeMembers)
	if listExpenses != nil {
		r.Get("/expenses", listExpenses)
	}
	r.Post("/create", h.HandleCreate)
	r.Post("/join", h.HandleJoin)
	r.Post("/leave", h.HandleLeave)
	r.Post("/invite", h.HandleInvite)
	r.Post("/transfer-ownership", h.HandleTransferOwnership)
	r.Put("/settings", h.HandleSettings)
	r.Put("/member/{id}/role", h.HandleMemberRole)
	r.Delete("/member/{id}", h.HandleRemoveMember)
	return r
}
