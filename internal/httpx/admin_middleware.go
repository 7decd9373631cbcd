package httpx

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"anicatalog/internal/platform/crypto"
)

// AdminMiddleware guards operational endpoints with an HS256 bearer token
// carrying the ADMIN role. With an empty secret the endpoints are disabled.
func AdminMiddleware(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				JSONError(w, r, http.StatusServiceUnavailable, "ADMIN_DISABLED", "Operational endpoints are disabled", nil)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := crypto.ParseToken(secret, token)
			if err != nil {
				logger.Debug("rejected admin token", zap.String("request_id", RequestIDFrom(r)), zap.Error(err))
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", nil)
				return
			}
			if claims.Role != crypto.RoleAdmin {
				JSONError(w, r, http.StatusForbidden, "FORBIDDEN", "Admin role required", nil)
				return
			}

			ctx := ContextWithSubject(r.Context(), claims.Sub, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
