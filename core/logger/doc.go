// Package logger provides structured logging utilities built on Go's standard slog package.
//
// Create loggers with the factory function and environment presets:
//
//	log := logger.New(logger.WithProduction("authsession"))
//	log.Info("server starting", logger.Component("http"))
//
// Attribute helpers return an empty slog.Attr for nil input, so calls such as
// log.Error("failed", logger.Error(err)) never need a nil check. Session-specific
// helpers (UserID, SessionExpiry, Status) keep attribute keys consistent across
// the session packages.
//
// Capture output in tests with WithOutput:
//
//	var buf bytes.Buffer
//	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(&buf))
package logger
