package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"blockdocs/internal/auth"
	"blockdocs/internal/httputil"

	"github.com/google/uuid"
)

// DevUserHeader carries the acting user id when bearer verification is disabled
const DevUserHeader = "X-User-ID"

// publicPaths skip authentication
var publicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware verifies the bearer token and stores its subject as the user id
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("authentication failed", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}

// DevAuthMiddleware trusts the X-User-ID header. Never used in production.
func DevAuthMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	logger.Warn("bearer verification disabled, trusting " + DevUserHeader)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			userID := r.Header.Get(DevUserHeader)
			if _, err := uuid.Parse(userID); err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, DevUserHeader+" must be a UUID")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, userID))
		})
	}
}
