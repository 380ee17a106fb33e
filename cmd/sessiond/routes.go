package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/authsession/core/health"
	"github.com/dmitrymomot/authsession/core/logger"
	"github.com/dmitrymomot/authsession/core/session"
	"github.com/dmitrymomot/authsession/middleware"
	"github.com/dmitrymomot/authsession/pkg/ratelimiter"
)

const (
	maxBodySize = 4 << 10

	// loginTicketHeader carries the ticket of a login waiting for its code.
	loginTicketHeader = "X-Login-Ticket"
)

func newRouter(svc *session.Service, limiter ratelimiter.RateLimiter, log *slog.Logger, checks ...func(context.Context) error) http.Handler {
	h := &handlers{svc: svc, log: log.With(logger.Component("api"))}
	auth := middleware.SessionWithConfig(middleware.SessionConfig{Service: svc, Logger: log})
	throttle := middleware.RateLimit(middleware.RateLimitConfig{
		Limiter:      limiter,
		KeyExtractor: h.loginKey,
		SetHeaders:   true,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.Handle("GET /health/ready", health.Readiness(log, checks...))

	mux.Handle("GET /v1/session", auth(http.HandlerFunc(h.current)))
	mux.Handle("GET /v1/session/verification", auth(http.HandlerFunc(h.pendingCode)))
	mux.Handle("POST /v1/logins/verify", throttle(http.HandlerFunc(h.confirmLogin)))
	mux.HandleFunc("POST /v1/logins/resend", h.resendCode)
	mux.Handle("POST /v1/session/logout", auth(http.HandlerFunc(h.logout)))
	mux.Handle("GET /v1/sessions", auth(http.HandlerFunc(h.list)))
	mux.Handle("POST /v1/sessions/logout", auth(http.HandlerFunc(h.logoutAll)))

	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{UseExisting: true})(
		middleware.ClientIP()(
			middleware.LoggingWithConfig(middleware.LoggingConfig{
				Logger: log,
				Skip:   isHealthProbe,
			})(mux),
		),
	)
}

func isHealthProbe(r *http.Request) bool {
	return r.URL.Path == "/health/live" || r.URL.Path == "/health/ready"
}

type handlers struct {
	svc *session.Service
	log *slog.Logger
}

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Expiry    int64     `json:"expiry"`
	ExpiresAt time.Time `json:"expires_at"`
}

type deviceResponse struct {
	Expiry      int64     `json:"expiry"`
	ExpiresAt   time.Time `json:"expires_at"`
	LastOnline  time.Time `json:"last_online"`
	IP          string    `json:"ip"`
	Device      string    `json:"device"`
	Handheld    bool      `json:"handheld"`
	Current     bool      `json:"current"`
	PendingCode bool      `json:"pending_code"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type codeResponse struct {
	Code string `json:"code"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)
	middleware.WriteJSON(w, http.StatusOK, sessionResponse{
		UserID:    id.UserID.String(),
		Expiry:    id.Expiry,
		ExpiresAt: time.Unix(id.Expiry, 0).UTC(),
	})
}

// pendingCode shows the code to the session chosen to approve a new login.
func (h *handlers) pendingCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.svc.PendingCode(r.Context(), mustIdentity(r))
	if err != nil {
		middleware.WriteError(w, middleware.HTTPStatus(err), err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, codeResponse{Code: code})
}

// confirmLogin trades a login ticket and the code shown on the approving
// session for a bearer token.
func (h *handlers) confirmLogin(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil || req.Code == "" {
		middleware.WriteError(w, http.StatusBadRequest, errors.New("code is required"))
		return
	}

	token, err := h.svc.ConfirmLogin(r.Context(), r.Header.Get(loginTicketHeader), req.Code, middleware.RequestClient(r))
	if err != nil {
		middleware.WriteError(w, middleware.HTTPStatus(err), err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tokenResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt().UTC(),
	})
}

func (h *handlers) resendCode(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResendLoginCode(r.Context(), r.Header.Get(loginTicketHeader)); err != nil {
		middleware.WriteError(w, middleware.HTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loginKey throttles code guesses per user, whichever device they come from.
// Requests without a valid ticket share the client IP bucket.
func (h *handlers) loginKey(r *http.Request) string {
	if userID, err := h.svc.TicketUser(r.Context(), r.Header.Get(loginTicketHeader)); err == nil {
		return "user:" + userID.String()
	}
	return middleware.IdentityKey(r)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context(), mustIdentity(r))
	if err != nil && !errors.Is(err, session.ErrSessionMissing) {
		middleware.WriteError(w, middleware.HTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) logoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LogoutAll(r.Context(), mustIdentity(r).UserID); err != nil {
		middleware.WriteError(w, middleware.HTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)
	sessions, err := h.svc.Sessions(r.Context(), id.UserID)
	if err != nil {
		middleware.WriteError(w, middleware.HTTPStatus(err), err)
		return
	}

	out := make([]deviceResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, deviceResponse{
			Expiry:      s.Expiry,
			ExpiresAt:   s.ExpiresAt.UTC(),
			LastOnline:  s.LastOnline.UTC(),
			IP:          s.IP,
			Device:      s.Device,
			Handheld:    s.Handheld,
			Current:     s.Expiry == id.Expiry,
			PendingCode: s.PendingCode,
		})
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// mustIdentity reads the identity the session middleware stored.
// Routes without that middleware must not call it.
func mustIdentity(r *http.Request) session.Identity {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		panic("sessiond: route is missing the session middleware")
	}
	return id
}
