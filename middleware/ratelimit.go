package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/authsession/pkg/ratelimiter"
)

// ErrTooManyRequests is reported when a rate limit is exceeded.
var ErrTooManyRequests = errors.New("too many requests")

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
	// Limiter is the rate limiting implementation to use
	Limiter ratelimiter.RateLimiter
	// KeyExtractor defines how to extract the rate limiting key from requests (default: client IP)
	KeyExtractor func(r *http.Request) string
	// ErrorHandler defines how to handle rate limit violations (default: 429 Too Many Requests)
	ErrorHandler func(w http.ResponseWriter, r *http.Request, result *ratelimiter.Result)
	// SetHeaders determines whether to include rate limit information in response headers
	SetHeaders bool
}

// RateLimit creates a rate limiting middleware. Panics if no limiter is provided.
//
// Place it after Session and key by identity to bound verification code
// guesses per user:
//
//	mw := middleware.RateLimit(middleware.RateLimitConfig{
//		Limiter:      limiter,
//		KeyExtractor: middleware.IdentityKey,
//		SetHeaders:   true,
//	})
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = requestClientIP
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, _ *ratelimiter.Result) {
			WriteError(w, http.StatusTooManyRequests, ErrTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.Allow(r.Context(), cfg.KeyExtractor(r))
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err)
				return
			}

			if cfg.SetHeaders {
				setRateLimitHeaders(w, result)
			}
			if !result.Allowed() {
				cfg.ErrorHandler(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IdentityKey keys rate limits by the authenticated user, falling back to the client IP.
func IdentityKey(r *http.Request) string {
	if id, ok := GetIdentity(r.Context()); ok {
		return "user:" + id.UserID.String()
	}
	return "ip:" + requestClientIP(r)
}

func setRateLimitHeaders(w http.ResponseWriter, result *ratelimiter.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	// Remaining is negative for refused requests.
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

	if retry := result.RetryAfter(); retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	}
}
