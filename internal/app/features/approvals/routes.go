// internal/app/features/approvals/routes.go
package approvals

import (
	"github.com/dalemusser/depensify/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/admin. Every route requires the system admin flag.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireAdmin(h.ErrLog.Write))
	r.Get("/pending-users", h.ServePending)
	r.Post("/approve-user/{userId}", h.HandleApprove)
	r.Post("/reject-user/{userId}", h.HandleReject)
	return r
}
