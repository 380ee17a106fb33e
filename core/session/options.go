package session

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/authsession/core/logger"
)

type options struct {
	logger    *slog.Logger
	now       func() time.Time
	keyPrefix string
}

// Option is a functional option shared by the constructors of this package.
type Option func(*options)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeyPrefix prefixes every key written to the key-value store.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger: logger.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
