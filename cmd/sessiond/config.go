package main

import "time"

// appConfig holds process level settings. Component settings live in
// session.Config, redis.Config and pg.Config.
type appConfig struct {
	Env             string        `env:"APP_ENV" envDefault:"development"`
	Name            string        `env:"APP_NAME" envDefault:"sessiond"`
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Verification code guesses allowed per user, regained one per VerifyRefill.
	VerifyAttempts int           `env:"VERIFY_MAX_ATTEMPTS" envDefault:"5"`
	VerifyRefill   time.Duration `env:"VERIFY_ATTEMPT_REFILL" envDefault:"1m"`

	// PostgresURL switches the verification pointer to Postgres when set.
	PostgresURL string `env:"PG_CONN_URL"`
}
