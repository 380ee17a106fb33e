// Package middleware provides net/http middleware for services built on the
// session subsystem.
//
// All middleware follows the same pattern: a default constructor, a
// WithConfig constructor taking a Config struct with an optional Skip
// function, and a Get helper reading the stored value back from the request
// context.
//
//	mux := http.NewServeMux()
//	mux.Handle("GET /v1/session", middleware.Session(svc)(currentSession))
//
//	h := middleware.RequestID()(middleware.ClientIP()(middleware.Logging(log)(mux)))
//
// # Session
//
// Session authenticates a bearer token with session.Service.VerifyOrRefresh.
// The resulting identity is available through GetIdentity. When the token has
// been rotated the new one is returned in the Authorization response header
// and the client must switch to it:
//
//	Authorization: Bearer <new token>
//
// Invalid, unknown and blocked sessions get 401 Unauthorized. Store failures
// get 500 Internal Server Error.
//
// # ClientIP
//
// ClientIP resolves the client address with pkg/clientip once per request so
// that later middleware and handlers share the same value.
//
// # RequestID
//
// RequestID assigns a UUID to every request, optionally reusing one supplied
// by an upstream proxy, and echoes it in the X-Request-ID response header.
//
// # Logging
//
// Logging writes one structured record per request with the method, path,
// status and duration.
package middleware
