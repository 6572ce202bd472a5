package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"gatedesk/auth"
	"gatedesk/models"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// SessionProvider reports the operator signed in at this console.
type SessionProvider interface {
	Current(ctx context.Context) (models.Identity, bool)
}

// AuthMiddleware validates access tokens and injects the operator identity into context.
// A token only authenticates while its operator is still the console session, so signing out
// revokes every token issued before.
func AuthMiddleware(jwtManager *auth.JWTManager, sessions SessionProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := requestToken(w, r)
			if !ok {
				return
			}

			claims, err := jwtManager.ValidateToken(token, auth.TokenAccess)
			if err != nil {
				writeError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			current, signedIn := sessions.Current(r.Context())
			if !signedIn || current.Code != claims.GuardCode {
				writeError(w, "Session has ended", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, current)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestToken reads the bearer token. Browsers cannot set headers on WebSocket upgrades, so
// those may pass it as the "token" query parameter instead.
func requestToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("token"); t != "" && r.Header.Get("Upgrade") == "websocket" {
			return t, true
		}
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return "", false
	}

	token, err := auth.ExtractToken(authHeader)
	if err != nil {
		writeError(w, "Invalid authorization header", http.StatusUnauthorized)
		return "", false
	}
	return token, true
}

// GetIdentityFromContext retrieves the operator from the request context
func GetIdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(models.Identity)
	return id, ok
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
