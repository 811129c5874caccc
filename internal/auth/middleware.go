package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/HerbHall/runstats/internal/server"
)

// claimsKey is a context key for the validated token claims.
type claimsKey struct{}

// ClaimsFromContext returns the validated claims from the request context.
// Returns nil if the request carried no token.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey{}).(*Claims); ok {
		return c
	}
	return nil
}

// Middleware requires a valid bearer token on mutating API routes (write
// scope) and on websocket upgrades (any scope). Read-only API routes and non-API paths (healthz,
// readyz, metrics) pass through; a token presented on them is still
// validated and attached to the context.
func Middleware(tokens *TokenService) server.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isAPI := strings.HasPrefix(r.URL.Path, "/api/")
			isWS := strings.HasPrefix(r.URL.Path, "/ws/")
			if !isAPI && !isWS {
				next.ServeHTTP(w, r)
				return
			}

			raw := bearerToken(r)
			if isWS && raw == "" {
				// Browsers cannot set headers on websocket upgrades.
				raw = r.URL.Query().Get("token")
			}

			// Websocket upgrades need a token of any scope; pushes over the
			// socket are scope-checked per request.
			write := isAPI && !readOnly(r.Method)
			if raw == "" {
				if isWS || write {
					server.Unauthorized(w, "missing or invalid authorization header", r.URL.Path)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.ValidateToken(raw)
			if err != nil {
				server.Unauthorized(w, "invalid or expired token", r.URL.Path)
				return
			}
			if write && !claims.CanWrite() {
				server.WriteProblem(w, server.Problem{
					Type:     server.ProblemTypeForbidden,
					Title:    "Forbidden",
					Status:   http.StatusForbidden,
					Detail:   "token scope does not allow writes",
					Instance: r.URL.Path,
				})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func readOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
