package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/craftpc/storefront/pkg/httpmiddleware"
)

// Role is the caller's access level, resolved by the identity provider at
// the edge and carried on request headers.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the session and role of the current caller.
type Identity struct {
	SessionID string
	Role      Role
}

type identityKey struct{}

// IdentityFromContext returns the caller identity stored by SessionIdentity.
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Identity{Role: RoleCustomer}
}

// SessionIdentity returns a middleware that resolves the caller's session
// and role from the X-Session-ID and X-User-Role headers. A request
// without a session gets a fresh one, echoed on the response so the
// client can persist it.
func SessionIdentity() httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get("X-Session-ID")
			if sessionID == "" || len(sessionID) > 128 {
				sessionID = uuid.New().String()
			}
			w.Header().Set("X-Session-ID", sessionID)

			role := RoleCustomer
			if Role(r.Header.Get("X-User-Role")) == RoleAdmin {
				role = RoleAdmin
			}

			ctx := context.WithValue(r.Context(), identityKey{}, Identity{
				SessionID: sessionID,
				Role:      role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly guards admin routes: callers without the admin role get 403.
// Applied once per route at mux registration, never inside handlers.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()).Role != RoleAdmin {
			writeError(w, http.StatusForbidden, "access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}
