package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/service"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// Client-facing messages. The precise token failure is only logged.
const (
	msgAuthRequired = "Authentication required"
	msgInvalidToken = "Invalid or expired token"
	msgAdminOnly    = "Admin access required"
)

// Authenticate resolves the Authorization header through guard and attaches
// the resulting principal to the request context. Requests without a valid
// bearer token get a 401; they are never downgraded to anonymous.
func Authenticate(guard *service.Guard, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := guard.Authorize(r.Header.Get("Authorization"))
			if err != nil {
				reason := "unknown"
				var ue *service.UnauthenticatedError
				if errors.As(err, &ue) {
					reason = ue.Reason
				}
				logger.Debug("request rejected",
					"reason", reason,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)

				msg := msgInvalidToken
				if reason == "absent" {
					msg = msgAuthRequired
				}
				writeErrorJSON(w, http.StatusUnauthorized, msg)
				return
			}

			setRequestUser(r.Context(), principal.Username)
			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces the admin role through guard. It must run after
// Authenticate.
func RequireAdmin(guard *service.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if err := guard.RequireAdmin(principal); err != nil {
				if errors.Is(err, service.ErrForbidden) {
					writeErrorJSON(w, http.StatusForbidden, msgAdminOnly)
					return
				}
				writeErrorJSON(w, http.StatusUnauthorized, msgAuthRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *service.Principal) context.Context {
	return context.WithValue(ctx, AuthPrincipalKey, p)
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present.
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="hostwatch"`)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
