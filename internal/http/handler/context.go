package handler

import (
	"net/http"

	"github.com/vgcarvalho/techstore-backend/internal/http/middleware"
)

// actorUserID pulls the authenticated user id out of the request claims for
// audit lines. Empty when the route is unauthenticated.
func actorUserID(r *http.Request) string {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.Subject
}
