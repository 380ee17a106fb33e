package session

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsession/pkg/jwt"
)

// ticketAudience marks login tickets so they never pass as bearer tokens.
const ticketAudience = "login-verification"

// Codec signs and verifies bearer tokens and login tickets. It holds no mutable state.
type Codec struct {
	jwt       *jwt.Service
	lifetime  time.Duration
	ticketTTL time.Duration
	threshold time.Duration
	issuer    string
	now       func() time.Time
}

// NewCodec creates a Codec from cfg.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	svc, err := jwt.NewFromString(cfg.Secret,
		jwt.WithMaxAge(cfg.MaxAge()),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithTimeFunc(o.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &Codec{
		jwt:       svc,
		lifetime:  cfg.TokenLifetime,
		ticketTTL: cfg.TicketLifetime(),
		threshold: cfg.RefreshThreshold(),
		issuer:    cfg.Issuer,
		now:       o.now,
	}, nil
}

// Sign issues a token for userID expiring TokenLifetime from now.
func (c *Codec) Sign(userID uuid.UUID) (Token, error) {
	now := c.now()
	expiry := now.Add(c.lifetime).Unix()

	value, err := c.jwt.Generate(jwt.StandardClaims{
		Subject:   userID.String(),
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(time.Unix(expiry, 0)),
	})
	if err != nil {
		return Token{}, errors.Join(ErrTokenSigning, err)
	}

	return Token{Value: value, Expiry: expiry}, nil
}

// Check verifies token and returns the identity it carries.
// Every failure is reported as ErrTokenInvalid, joined with the cause.
func (c *Codec) Check(token string) (Identity, error) {
	var claims jwt.StandardClaims
	if err := c.jwt.Parse(token, &claims); err != nil {
		return Identity{}, errors.Join(ErrTokenInvalid, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, errors.Join(ErrTokenInvalid, err)
	}
	if userID == uuid.Nil || claims.ExpiresAt == nil || len(claims.Audience) > 0 {
		return Identity{}, ErrTokenInvalid
	}

	return Identity{UserID: userID, Expiry: claims.ExpiresAt.Unix()}, nil
}

// SignTicket issues a short-lived login ticket for userID. A ticket proves the
// first login factor while the new device waits for its verification code.
func (c *Codec) SignTicket(userID uuid.UUID) (Token, error) {
	now := c.now()
	expiry := now.Add(c.ticketTTL).Unix()

	value, err := c.jwt.Generate(jwt.StandardClaims{
		Subject:   userID.String(),
		Issuer:    c.issuer,
		Audience:  []string{ticketAudience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(time.Unix(expiry, 0)),
	})
	if err != nil {
		return Token{}, errors.Join(ErrTokenSigning, err)
	}

	return Token{Value: value, Expiry: expiry}, nil
}

// CheckTicket verifies a login ticket and returns its user.
// Bearer tokens are rejected with ErrTokenInvalid.
func (c *Codec) CheckTicket(ticket string) (uuid.UUID, error) {
	var claims jwt.StandardClaims
	if err := c.jwt.Parse(ticket, &claims); err != nil {
		return uuid.Nil, errors.Join(ErrTokenInvalid, err)
	}
	if !slices.Contains(claims.Audience, ticketAudience) {
		return uuid.Nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.Join(ErrTokenInvalid, err)
	}
	if userID == uuid.Nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return userID, nil
}

// NeedsRefresh reports whether a token expiring at expiry has RefreshThreshold
// or less left. Expired tokens always need a refresh.
func (c *Codec) NeedsRefresh(expiry int64) bool {
	return time.Unix(expiry, 0).Sub(c.now()) <= c.threshold
}
