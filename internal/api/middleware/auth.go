package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/meditationastro/medinow-sub000/internal/auth"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractToken extracts JWT token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// TokenVerifier validates an access token issued by the site's login flow.
type TokenVerifier interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// Authenticate attaches the caller identity when a token is present. Requests
// without a token pass through as anonymous; a presented token that does not
// verify is rejected rather than silently downgraded.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.ValidateAccessToken(tokenString)
			if err != nil {
				respondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := auth.WithIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch auth.RequireAdmin(auth.FromContext(r.Context())) {
		case nil:
			next.ServeHTTP(w, r)
		case auth.ErrUnauthenticated:
			respondError(w, "unauthorized", http.StatusUnauthorized)
		default:
			respondError(w, "forbidden", http.StatusForbidden)
		}
	})
}
