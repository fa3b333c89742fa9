package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	jwttoken "shamba/internal/jwt_token"
	"shamba/pkg/requestcontext"
)

// TokenValidator is the part of the JWT service the middleware needs.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireAuth validates the bearer token and attaches the caller identity to
// the request context. Requests without a valid token stop here with a 401.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				unauthorized(w, r, logger, "Missing or invalid Authorization header")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w, r, logger, "Invalid or expired token")
				return
			}
			ident, err := claims.Identity()
			if err != nil {
				unauthorized(w, r, logger, "Invalid token claims")
				return
			}
			ctx := requestcontext.WithIdentity(r.Context(), ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, description string) {
	logger.WarnContext(r.Context(), "unauthorized request",
		"reason", description,
		"request_id", requestcontext.RequestID(r.Context()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
