// internal/app/features/account/routes.go
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes serves /api/register, /api/login and /api/me. The returned router
// is the /api root; other features mount under it.
func Routes(h *Handler, requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.With(requireAuth).Get("/me", h.ServeMe)
	return r
}
