package session

import (
	"errors"
	"time"
)

// Config holds session subsystem settings.
type Config struct {
	// Secret is the HMAC key used to sign bearer tokens.
	Secret string `env:"SESSION_SECRET,required"`
	// TokenLifetime is how long a freshly signed token stays valid.
	TokenLifetime time.Duration `env:"SESSION_TOKEN_LIFETIME" envDefault:"720h"`
	// TokenMaxAge rejects tokens issued longer ago than this, whatever their expiry (0 = TokenLifetime).
	TokenMaxAge time.Duration `env:"SESSION_TOKEN_MAX_AGE" envDefault:"0s"`
	// RefreshThresholdDays rotates tokens with this many days or less left.
	RefreshThresholdDays int    `env:"SESSION_REFRESH_THRESHOLD_DAYS" envDefault:"7"`
	Issuer               string `env:"SESSION_ISSUER"`
	KeyPrefix            string `env:"SESSION_KEY_PREFIX"`
	CodeDigits           int    `env:"SESSION_CODE_DIGITS" envDefault:"6"`
	// LoginTicketLifetime bounds how long a login may wait for its verification code.
	LoginTicketLifetime time.Duration `env:"SESSION_LOGIN_TICKET_LIFETIME" envDefault:"15m"`
}

// DefaultConfig returns the default configuration with the given secret.
func DefaultConfig(secret string) Config {
	return Config{
		Secret:               secret,
		TokenLifetime:        30 * 24 * time.Hour,
		RefreshThresholdDays: 7,
		CodeDigits:           6,
		LoginTicketLifetime:  15 * time.Minute,
	}
}

// RefreshThreshold returns RefreshThresholdDays as a duration.
func (c Config) RefreshThreshold() time.Duration {
	return time.Duration(c.RefreshThresholdDays) * 24 * time.Hour
}

// TicketLifetime returns LoginTicketLifetime, defaulting to 15 minutes.
func (c Config) TicketLifetime() time.Duration {
	if c.LoginTicketLifetime > 0 {
		return c.LoginTicketLifetime
	}
	return 15 * time.Minute
}

// MaxAge returns TokenMaxAge, defaulting to TokenLifetime.
func (c Config) MaxAge() time.Duration {
	if c.TokenMaxAge > 0 {
		return c.TokenMaxAge
	}
	return c.TokenLifetime
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Secret == "" {
		errs = append(errs, errors.New("secret is required"))
	}
	if c.TokenLifetime <= 0 {
		errs = append(errs, errors.New("token lifetime must be positive"))
	}
	if c.RefreshThresholdDays < 0 {
		errs = append(errs, errors.New("refresh threshold must not be negative"))
	}
	if c.TokenLifetime > 0 && c.RefreshThreshold() >= c.TokenLifetime {
		errs = append(errs, errors.New("refresh threshold must be shorter than token lifetime"))
	}
	if c.CodeDigits < 4 || c.CodeDigits > 10 {
		errs = append(errs, errors.New("code digits must be between 4 and 10"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
