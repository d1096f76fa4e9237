package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"perfeval/internal/domain/auth"
)

// SessionChecker reports whether a login session is still active.
type SessionChecker interface {
	SessionValid(ctx context.Context, userID, sessionID string) (bool, error)
}

// Auth attaches the bearer token's user to the request context. Requests
// without a valid token, or whose session was revoked, continue anonymous.
func Auth(secret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if sessions != nil {
				if claims.SessionID == "" {
					next.ServeHTTP(w, r)
					return
				}
				valid, err := sessions.SessionValid(r.Context(), claims.UserID, claims.SessionID)
				if err != nil {
					slog.Warn("session check failed", "userId", claims.UserID, "err", err)
				}
				if err != nil || !valid {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := WithUser(r.Context(), auth.UserContext{
				UserID:    claims.UserID,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
