package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/echofeed/backend/internal/auth"
	"github.com/echofeed/backend/pkg/utils"
)

type contextKey string

const usernameKey contextKey = "username"

// UsernameFromContext returns the authenticated username, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(usernameKey).(string)
	return v, ok
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's username in the request context.
func RequireAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := parseBearer(issuer, r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), usernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin additionally checks the token belongs to the moderation
// account.
func RequireAdmin(issuer *auth.Issuer, adminUsername string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := parseBearer(issuer, r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
			if claims.Username != adminUsername {
				utils.RespondError(w, http.StatusForbidden, "admin access required")
				return
			}
			ctx := context.WithValue(r.Context(), usernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(issuer *auth.Issuer, r *http.Request) (*auth.Claims, bool) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return nil, false
	}
	claims, err := issuer.Parse(raw)
	if err != nil {
		return nil, false
	}
	return claims, true
}
