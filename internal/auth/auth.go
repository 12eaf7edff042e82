// Package auth provides the shared-secret credential check and the HTTP
// middleware that enforces it on every API route.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/elazargur/llm-council/internal/config"
)

// Header names carrying the credential pair on every request.
const (
	PasswordHeader = "X-Auth-Password"
	EmailHeader    = "X-Auth-Email"
)

// Rejection reasons, surfaced verbatim in the 401 body.
var (
	ErrNotConfigured      = errors.New("Server auth not configured")
	ErrPasswordRequired   = errors.New("Password required")
	ErrInvalidPassword    = errors.New("Invalid password")
	ErrEmailRequired      = errors.New("Email required")
	ErrEmailNotAuthorized = errors.New("Email not authorized")
)

// Check validates a credential pair against the configured shared secret
// and email allowlist. The checks are ordered so the client sees the most
// specific failure.
func Check(cfg *config.Config, password, email string) error {
	if cfg.AuthPassword == "" {
		return ErrNotConfigured
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if password != cfg.AuthPassword {
		return ErrInvalidPassword
	}
	if email == "" {
		return ErrEmailRequired
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, allowed := range cfg.AllowedEmails {
		if email == allowed {
			return nil
		}
	}
	return ErrEmailNotAuthorized
}

type contextKey int

const emailKey contextKey = iota

// EmailFromContext extracts the authenticated email from the request context.
func EmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(emailKey).(string); ok {
		return v
	}
	return ""
}

// Middleware rejects requests without a valid credential pair and stores the
// normalized email in the request context for session scoping.
func Middleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			password := r.Header.Get(PasswordHeader)
			email := r.Header.Get(EmailHeader)

			if err := Check(cfg, password, email); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}

			ctx := context.WithValue(r.Context(), emailKey, strings.ToLower(strings.TrimSpace(email)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
