package middleware

import (
	"net/http"
	"strings"

	"attendance-control-plane/internal/security"
)

const bearerPrefix = "bearer "

// RequireAuth returns middleware that validates the Bearer (access) token
// from the Authorization header and sets organizer_id and email in context.
// Requests without a valid token get 401.
func RequireAuth(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				http.Error(w, `{"error":"missing or invalid authorization"}`, http.StatusUnauthorized)
				return
			}
			organizerID, email, err := tokens.ValidateAccess(token)
			if err != nil {
				http.Error(w, `{"error":"missing or invalid authorization"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOrganizer(r.Context(), organizerID, email)))
		})
	}
}

// extractBearer returns the Bearer token from the request, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
