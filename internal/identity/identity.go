// Package identity resolves the authenticated user behind a peer request.
package identity

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/jecnabot/internal/store"
)

const (
	// TokenQueryParam carries the credential on the WebSocket handshake.
	TokenQueryParam = "token"
	// DefaultSessionIDValue is returned when no session was attached.
	DefaultSessionIDValue = "default"
)

type contextKey int

const (
	userIDKey contextKey = iota
	usernameKey
	sessionIDKey
)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// UsernameFromContext extracts the username from the request context.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the chat session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, userID, username, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, usernameKey, username)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// TokenFromRequest reads the credential from the query string or an
// Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if tok := strings.TrimSpace(r.URL.Query().Get(TokenQueryParam)); tok != "" {
		return tok
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// Middleware rejects requests without a live token and injects the token's
// user plus a fresh session ID into the request context.
func Middleware(repo store.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value := TokenFromRequest(r)
			if value == "" {
				unauthorized(w)
				return
			}

			tok, err := repo.GetToken(r.Context(), value)
			if err != nil {
				slog.Error("Token lookup failed", "error", err, "ip", IPFromRequest(r))
				http.Error(w, `{"error":"failed to verify token"}`, http.StatusInternalServerError)
				return
			}
			if tok == nil || tok.Expired(time.Now()) {
				slog.Warn("Rejected token", "ip", IPFromRequest(r), "known", tok != nil)
				unauthorized(w)
				return
			}

			ctx := WithIdentity(r.Context(), tok.UserID, tok.Username, uuid.NewString())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
