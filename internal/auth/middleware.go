package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is unexported so no other package can collide with our keys.
type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID string
	// Token is the raw bearer token, needed for logout.
	Token  string
	Claims *Claims
}

// RequireAuth rejects requests without a usable bearer token.
//
//	missing or revoked token → 401
//	token of a deleted account → 401 (with an account check)
//	malformed or expired     → 403
func RequireAuth(sessions *SessionAuthority, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)

			claims, err := sessions.Verify(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, ErrMissingToken):
					reject(w, http.StatusUnauthorized, "unauthenticated", "authentication token required")
				case errors.Is(err, ErrRevokedToken):
					reject(w, http.StatusUnauthorized, "unauthenticated", "token has been revoked")
				case errors.Is(err, ErrUnknownAccount):
					reject(w, http.StatusUnauthorized, "unauthenticated", "account no longer exists")
				case errors.Is(err, ErrInvalidToken):
					logger.Debug("rejected token", slog.String("reason", err.Error()))
					reject(w, http.StatusForbidden, "forbidden", "invalid or expired token")
				default:
					logger.Error("verifying token", slog.String("error", err.Error()))
					reject(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
				}
				return
			}

			p := &Principal{UserID: claims.UserID, Token: token, Claims: claims}
			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p. Handler tests use it to
// skip the middleware.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil && p.UserID != ""
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", false
	}
	return p.UserID, true
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is case-insensitive.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func reject(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
