package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/core/logger"
	"github.com/dmitrymomot/authsession/middleware"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates an id", func(t *testing.T) {
		t.Parallel()

		var seen string
		h := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			id, ok := middleware.GetRequestID(r.Context())
			require.True(t, ok)
			seen = id
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("reuses incoming id when configured", func(t *testing.T) {
		t.Parallel()

		h := middleware.RequestIDWithConfig(middleware.RequestIDConfig{UseExisting: true})(
			http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
		)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))
	})

	t.Run("ignores incoming id by default", func(t *testing.T) {
		t.Parallel()

		h := middleware.RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.NotEqual(t, "upstream-id", rec.Header().Get("X-Request-ID"))
	})
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	t.Run("stores resolved address", func(t *testing.T) {
		t.Parallel()

		var ip string
		h := middleware.ClientIP()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			ip, _ = middleware.GetClientIP(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "198.51.100.4")

		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "198.51.100.4", ip)
	})

	t.Run("echoes header when configured", func(t *testing.T) {
		t.Parallel()

		h := middleware.ClientIPWithConfig(middleware.ClientIPConfig{
			HeaderName: "X-Client-IP",
			Resolver:   func(*http.Request) string { return "203.0.113.1" },
		})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "203.0.113.1", rec.Header().Get("X-Client-IP"))
	})

	t.Run("missing value without middleware", func(t *testing.T) {
		t.Parallel()

		_, ok := middleware.GetClientIP(httptest.NewRequest(http.MethodGet, "/", nil).Context())
		assert.False(t, ok)
	})
}

func TestLogging(t *testing.T) {
	t.Parallel()

	newLogger := func() (*slog.Logger, *bytes.Buffer) {
		buf := &bytes.Buffer{}
		return logger.New(logger.WithOutput(buf), logger.WithJSONFormatter(), logger.WithLevel(slog.LevelDebug)), buf
	}

	t.Run("logs status and path", func(t *testing.T) {
		t.Parallel()

		log, buf := newLogger()
		h := middleware.RequestID()(middleware.Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		})))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		out := buf.String()
		assert.Contains(t, out, `"status":418`)
		assert.Contains(t, out, `"path":"/v1/sessions"`)
		assert.Contains(t, out, `"level":"WARN"`)
		assert.Contains(t, out, `"request_id"`)
	})

	t.Run("server errors are logged at error level", func(t *testing.T) {
		t.Parallel()

		log, buf := newLogger()
		h := middleware.Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
	})

	t.Run("skip suppresses the record", func(t *testing.T) {
		t.Parallel()

		log, buf := newLogger()
		h := middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger: log,
			Skip:   func(r *http.Request) bool { return r.URL.Path == "/health/live" },
		})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Empty(t, buf.String())
	})
}
