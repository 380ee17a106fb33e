package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/authsession/core/logger"
)

// checkTimeout bounds a single readiness pass.
const checkTimeout = 3 * time.Second

// Readiness verifies all service dependencies are functioning.
// Returns "READY" if all checks pass, 503 Service Unavailable if any fail.
func Readiness(log *slog.Logger, fn ...func(context.Context) error) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		for _, f := range fn {
			if err := f(ctx); err != nil {
				log.ErrorContext(ctx, "Readiness check failed", logger.Error(err))
				writeText(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
				return
			}
		}

		writeText(w, http.StatusOK, "READY")
	})
}
