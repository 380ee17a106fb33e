package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// StandardClaims are the RFC 7519 registered claims.
type StandardClaims = jwtlib.RegisteredClaims

// Claims is implemented by any claims type accepted by Generate and Parse.
type Claims = jwtlib.Claims

// NewNumericDate converts t into a claims timestamp truncated to seconds.
func NewNumericDate(t time.Time) *jwtlib.NumericDate {
	return jwtlib.NewNumericDate(t)
}

// Service signs and verifies HMAC-SHA256 tokens.
type Service struct {
	key    []byte
	maxAge time.Duration
	issuer string
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxAge rejects tokens whose iat is older than d, regardless of exp.
// Zero disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		s.maxAge = d
	}
}

// WithIssuer requires the iss claim to equal issuer on Parse.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithTimeFunc overrides the clock used for temporal claim validation.
func WithTimeFunc(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service with the given signing key.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	s := &Service{
		key: signingKey,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString creates a Service from a string signing key.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Generate signs claims with HS256.
func (s *Service) Generate(claims Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", errors.Join(ErrSigningFailed, err)
	}
	return token, nil
}

// Parse verifies token and decodes it into claims.
// The signature, algorithm, exp (required), nbf and iat are validated.
func (s *Service) Parse(token string, claims Claims) error {
	if claims == nil {
		return ErrMissingClaims
	}
	if token == "" {
		return ErrInvalidToken
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
		jwtlib.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}

	parsed, err := jwtlib.ParseWithClaims(token, claims, s.keyFunc, opts...)
	if err != nil {
		return mapError(err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}

	if s.maxAge > 0 {
		iat, err := claims.GetIssuedAt()
		if err != nil || iat == nil {
			return ErrInvalidToken
		}
		if s.now().Sub(iat.Time) > s.maxAge {
			return ErrTokenTooOld
		}
	}

	return nil
}

func (s *Service) keyFunc(t *jwtlib.Token) (any, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, ErrUnexpectedSigningMethod
	}
	return s.key, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	case errors.Is(err, ErrUnexpectedSigningMethod):
		return err
	case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
		return errors.Join(ErrInvalidSignature, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}
