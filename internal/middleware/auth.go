package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
)

type principalKey struct{}

// WithPrincipal stores the principal name in the context.
func WithPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, principalKey{}, name)
}

// PrincipalFromContext extracts the principal name from the context.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(principalKey{}).(string)
	return name, ok
}

// AuthConfig configures Authenticate.
type AuthConfig struct {
	// Tokens verifies "Authorization: Bearer" tokens. Nil disables bearer auth.
	Tokens TokenValidator
	// APIKeys maps an X-API-Key value to its principal name.
	APIKeys map[string]string
	Logger  *slog.Logger
}

// Authenticate tries the bearer token first, then the API key, and answers
// 401 when neither identifies a principal.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// Only key hashes are kept in memory.
	keyHashes := make(map[string]string, len(cfg.APIKeys))
	for key, principal := range cfg.APIKeys {
		keyHashes[hashKey(key)] = principal
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); cfg.Tokens != nil && strings.HasPrefix(auth, "Bearer ") {
				claims, err := cfg.Tokens.Validate(r.Context(), strings.TrimPrefix(auth, "Bearer "))
				if err == nil && claims.Subject != "" {
					next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.Subject)))
					return
				}
				logger.Debug("bearer token rejected", "error", err, "request_id", RequestIDFromContext(r.Context()))
			}

			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				if principal, ok := keyHashes[hashKey(apiKey)]; ok {
					next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Bearer realm="tabschema"`)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized: provide a valid bearer token or API key")
		})
	}
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
