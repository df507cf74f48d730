// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the username, Mongo ObjectID, admin flag and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "", NilObjectID, false, false. Callers can trust that ok=true means an
// authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (name string, userID primitive.ObjectID, isAdmin bool, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", primitive.NilObjectID, false, false
	}
	userID, valid := user.ObjectID()
	if !valid {
		// fail closed
		return "", primitive.NilObjectID, false, false
	}
	return user.Username, userID, user.IsAdmin, true
}

// RequireAdmin gates a route on the system admin flag.
//   - not signed in: 401
//   - signed in without isAdmin: 403
func RequireAdmin(writeErr auth.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _, admin, ok := UserCtx(r)
			switch {
			case !ok:
				writeErr(w, r, apperr.Unauthorized("access token required"))
			case !admin:
				writeErr(w, r, apperr.Forbidden("admin access required"))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
