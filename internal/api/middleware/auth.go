package middleware

import (
	"net/http"
	"strings"

	"github.com/ethioshop/marketplace/internal/api/requestctx"
	"github.com/ethioshop/marketplace/internal/auth/token"
)

// UserGuard authenticates requests with a bearer JWT and attaches the
// resulting claims to the request context.
func UserGuard(manager *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			claims, err := manager.Parse(raw)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			ctx := requestctx.WithUser(r.Context(), requestctx.UserClaims{
				ID:   claims.Subject,
				Role: claims.Role,
				Name: claims.Name,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminGuard requires an already authenticated user with the admin
// role. It must run after UserGuard.
func AdminGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := requestctx.UserFrom(r.Context())
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			if claims.Role != "admin" {
				writeForbidden(w, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearer(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSONMessage(w, http.StatusUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeJSONMessage(w, http.StatusForbidden, message)
}

func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"message":"` + message + `"}`))
}
