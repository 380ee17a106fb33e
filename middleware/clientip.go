package middleware

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/authsession/pkg/clientip"
)

// clientIPContextKey is used as a key for storing the client IP in request context.
type clientIPContextKey struct{}

// ClientIPConfig configures the client IP middleware.
type ClientIPConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
	// Resolver extracts the address from the request (default: clientip.GetIP)
	Resolver func(r *http.Request) string
	// HeaderName, when set, echoes the resolved address in this response header
	HeaderName string
}

// ClientIP creates a client IP middleware with default configuration.
func ClientIP() func(http.Handler) http.Handler {
	return ClientIPWithConfig(ClientIPConfig{})
}

// ClientIPWithConfig creates a client IP middleware with custom configuration.
// The resolved address is stored in the request context.
func ClientIPWithConfig(cfg ClientIPConfig) func(http.Handler) http.Handler {
	if cfg.Resolver == nil {
		cfg.Resolver = clientip.GetIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			ip := cfg.Resolver(r)
			if cfg.HeaderName != "" && ip != "" {
				w.Header().Set(cfg.HeaderName, ip)
			}

			ctx := context.WithValue(r.Context(), clientIPContextKey{}, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP retrieves the client IP stored by the ClientIP middleware.
func GetClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok
}

// requestClientIP prefers the value stored by ClientIP over resolving again.
func requestClientIP(r *http.Request) string {
	if ip, ok := GetClientIP(r.Context()); ok {
		return ip
	}
	return clientip.GetIP(r)
}
