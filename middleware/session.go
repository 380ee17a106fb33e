package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/authsession/core/logger"
	"github.com/dmitrymomot/authsession/core/session"
)

type identityContextKey struct{}

// Verifier authenticates a bearer token. *session.Service implements it.
type Verifier interface {
	VerifyOrRefresh(ctx context.Context, token string, client session.Client) (session.Result, error)
}

// SessionConfig configures the session middleware.
type SessionConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
	// Service verifies the token and rotates it when needed
	Service Verifier
	// TokenExtractor defines how to extract the token from the request (default: Authorization bearer)
	TokenExtractor func(r *http.Request) string
	// ErrorHandler writes the response for a rejected request (default: JSON error with HTTPStatus(err))
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
	// Logger for structured logging (default: discard)
	Logger *slog.Logger
}

// Session creates a middleware authenticating requests against svc.
func Session(svc Verifier) func(http.Handler) http.Handler {
	return SessionWithConfig(SessionConfig{Service: svc})
}

// SessionWithConfig creates a session middleware with custom configuration.
// Panics if the service is not provided.
//
// On success the identity is stored in the request context. A rotated token
// is sent back in the Authorization response header before the next handler
// runs, so handlers may still override headers.
func SessionWithConfig(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.Service == nil {
		panic("session middleware: service is required")
	}
	if cfg.TokenExtractor == nil {
		cfg.TokenExtractor = BearerToken
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			WriteError(w, HTTPStatus(err), err)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			token := cfg.TokenExtractor(r)
			if token == "" {
				cfg.ErrorHandler(w, r, session.ErrTokenInvalid)
				return
			}

			client := RequestClient(r)

			res, err := cfg.Service.VerifyOrRefresh(r.Context(), token, client)
			if err != nil {
				cfg.Logger.DebugContext(r.Context(), "request rejected",
					logger.Status(res.Status.String()),
					logger.ClientIP(client.IP),
					logger.Error(err),
				)
				cfg.ErrorHandler(w, r, err)
				return
			}

			if res.Token != nil {
				w.Header().Set("Authorization", "Bearer "+res.Token.Value)
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, res.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the identity stored by the session middleware.
func GetIdentity(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(session.Identity)
	return id, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// HTTPStatus maps a session error to a response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, session.ErrTokenInvalid),
		errors.Is(err, session.ErrSessionMissing),
		errors.Is(err, session.ErrSessionBlocked):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrCodeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoPendingCode):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// WriteError writes err as a JSON body. Server errors hide the message.
func WriteError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	WriteJSON(w, status, errorBody{Error: msg})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RequestClient describes the device behind r.
func RequestClient(r *http.Request) session.Client {
	return session.Client{
		UserAgent: r.UserAgent(),
		IP:        requestClientIP(r),
	}
}
