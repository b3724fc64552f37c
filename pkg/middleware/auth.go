package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// TokenValidator is satisfied by *auth.Issuer.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token with 401 and
// stores the verified claims in the request context otherwise.
func Authenticate(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				response.Unauthorized(w)
				return
			}

			claims, err := v.ValidateToken(token)
			if err != nil {
				logger.WithCtx(r.Context()).Info("auth: token rejected", "error", err)
				response.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			log := logger.WithCtx(r.Context()).With("user_id", claims.UserID)
			ctx := logger.InjectLogger(auth.WithClaims(r.Context(), claims), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearer reads the Authorization header. Browsers cannot set headers on a
// websocket handshake, so upgrade requests may pass ?token= instead.
func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		t := r.URL.Query().Get("token")
		return t, t != ""
	}
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
