// Package health provides HTTP handlers for service health monitoring.
//
// Handlers:
//   - Liveness: Process is running (no dependency checks)
//   - Readiness: All dependencies are available
//
// Usage:
//
//	mux.HandleFunc("GET /health/live", health.Liveness)
//	mux.Handle("GET /health/ready", health.Readiness(
//		logger,
//		redis.Healthcheck(client),
//		pg.Healthcheck(pool),
//	))
//
// Dependency checks must follow func(context.Context) error signature.
package health
