// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// HasRole allows only users whose token carries one of roles.
// Authenticate must run first.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.FromContext(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[claims.Role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Seller lets sellers and admins through.
func Seller() func(http.Handler) http.Handler { return HasRole(auth.RoleSeller, auth.RoleAdmin) }

// Admin lets only admins through.
func Admin() func(http.Handler) http.Handler { return HasRole(auth.RoleAdmin) }
