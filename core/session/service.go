package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsession/core/kvstore"
	"github.com/dmitrymomot/authsession/core/logger"
	"github.com/dmitrymomot/authsession/pkg/useragent"
)

// Service is the entry point used by the HTTP layer.
// Every error it returns is one of the exported sentinel errors of this package.
type Service struct {
	codec      *Codec
	store      *Store
	validator  *Validator
	challenger *Challenger
	log        *slog.Logger
	now        func() time.Time
}

// NewService wires the session subsystem over kv. When accounts is nil the
// pending verification pointer is kept in kv as well.
// cfg.KeyPrefix applies unless WithKeyPrefix is given.
func NewService(cfg Config, kv kvstore.Store, accounts AccountStore, opts ...Option) (*Service, error) {
	if kv == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("key-value store is required"))
	}

	opts = append([]Option{WithKeyPrefix(cfg.KeyPrefix)}, opts...)
	o := applyOptions(opts)

	codec, err := NewCodec(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = NewKVAccountStore(kv, opts...)
	}

	store := NewStore(kv, opts...)
	refresher := NewRefresher(codec, store, opts...)

	return &Service{
		codec:      codec,
		store:      store,
		validator:  NewValidator(store, codec, refresher, opts...),
		challenger: NewChallenger(store, accounts, cfg, opts...),
		log:        o.logger.With(logger.Component("session")),
		now:        o.now,
	}, nil
}

// VerifyOrRefresh authenticates a request. On StatusRefreshed the result
// carries a new token the client must use from now on.
func (s *Service) VerifyOrRefresh(ctx context.Context, token string, client Client) (Result, error) {
	id, err := s.codec.Check(token)
	if err != nil {
		s.log.DebugContext(ctx, "token rejected", logger.Error(err), logger.ClientIP(client.IP))
		return Result{Status: StatusInvalid}, ErrTokenInvalid
	}

	res, err := s.validator.Validate(ctx, id, client)

	attrs := []any{
		logger.UserID(id.UserID),
		logger.SessionExpiry(id.Expiry),
		logger.Status(res.Status.String()),
	}
	switch res.Status {
	case StatusVerified:
		s.log.DebugContext(ctx, "session verified", attrs...)
	case StatusRefreshed:
		if err := s.challenger.Transfer(ctx, id.UserID, id.Expiry, res.Token.Expiry); err != nil {
			s.log.WarnContext(ctx, "failed to move verification pointer", append(attrs, logger.Error(err))...)
		}
		s.log.InfoContext(ctx, "session refreshed", append(attrs, slog.Int64("new_expiry", res.Token.Expiry))...)
	case StatusBlocked, StatusMissing:
		s.log.InfoContext(ctx, "session rejected", append(attrs, logger.Error(err))...)
	default:
		s.log.ErrorContext(ctx, "session validation failed", append(attrs, logger.Error(err))...)
	}

	return res, outward(err)
}

// CreateSession signs a token for userID and creates its session.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID, client Client) (Token, error) {
	token, err := s.codec.Sign(userID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to sign token", logger.UserID(userID), logger.Error(err))
		return Token{}, outward(err)
	}
	if err := s.CreateSessionWithExpiry(ctx, userID, token.Expiry, client); err != nil {
		return Token{}, err
	}
	return token, nil
}

// CreateSessionWithExpiry creates the session for an already issued token.
func (s *Service) CreateSessionWithExpiry(ctx context.Context, userID uuid.UUID, expiry int64, client Client) error {
	attrs := Attributes{
		UserAgent:  client.UserAgent,
		IP:         client.IP,
		LastOnline: s.now().Unix(),
	}
	if err := s.store.Create(ctx, userID, expiry, attrs); err != nil {
		s.log.ErrorContext(ctx, "failed to create session",
			logger.UserID(userID), logger.SessionExpiry(expiry), logger.Error(err))
		return outward(err)
	}

	s.log.InfoContext(ctx, "session created",
		logger.UserID(userID),
		logger.SessionExpiry(expiry),
		logger.ClientIP(client.IP),
		logger.UserAgent(client.UserAgent),
	)
	return nil
}

// IsVerificationRequired reports whether a login for userID must be approved
// from one of the user's existing sessions. When it returns true a code has
// been attached to the chosen session.
func (s *Service) IsVerificationRequired(ctx context.Context, userID uuid.UUID) (bool, error) {
	required, err := s.challenger.IsChallengeRequired(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "verification check failed", logger.UserID(userID), logger.Error(err))
		return false, outward(err)
	}
	return required, nil
}

// BeginLogin is called once the user passed the first login factor. A user
// with no valid session gets a session right away. Otherwise a code goes to
// the chosen session and the caller gets a login ticket to redeem with
// ConfirmLogin.
func (s *Service) BeginLogin(ctx context.Context, userID uuid.UUID, client Client) (Login, error) {
	required, err := s.IsVerificationRequired(ctx, userID)
	if err != nil {
		return Login{}, err
	}
	if !required {
		token, err := s.CreateSession(ctx, userID, client)
		if err != nil {
			return Login{}, err
		}
		return Login{Token: &token}, nil
	}

	ticket, err := s.codec.SignTicket(userID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to sign login ticket", logger.UserID(userID), logger.Error(err))
		return Login{}, outward(err)
	}

	s.log.InfoContext(ctx, "login waits for verification",
		logger.UserID(userID),
		logger.ClientIP(client.IP),
		logger.UserAgent(client.UserAgent),
	)
	return Login{Ticket: &ticket}, nil
}

// ConfirmLogin redeems a login ticket. The session is created only when code
// matches the pending verification code.
func (s *Service) ConfirmLogin(ctx context.Context, ticket, code string, client Client) (Token, error) {
	userID, err := s.TicketUser(ctx, ticket)
	if err != nil {
		return Token{}, err
	}
	if err := s.CheckEnteredCode(ctx, userID, code); err != nil {
		return Token{}, err
	}
	return s.CreateSession(ctx, userID, client)
}

// ResendLoginCode replaces the code a login ticket is waiting for.
func (s *Service) ResendLoginCode(ctx context.Context, ticket string) error {
	userID, err := s.TicketUser(ctx, ticket)
	if err != nil {
		return err
	}
	return s.IssueChallenge(ctx, userID)
}

// TicketUser returns the user a login ticket was issued to.
func (s *Service) TicketUser(ctx context.Context, ticket string) (uuid.UUID, error) {
	userID, err := s.codec.CheckTicket(ticket)
	if err != nil {
		s.log.DebugContext(ctx, "login ticket rejected", logger.Error(err))
		return uuid.Nil, ErrTokenInvalid
	}
	return userID, nil
}

// IssueChallenge replaces the pending code with a new one, for "resend code" flows.
func (s *Service) IssueChallenge(ctx context.Context, userID uuid.UUID) error {
	if err := s.challenger.Reissue(ctx, userID); err != nil {
		if !errors.Is(err, ErrNoPendingCode) {
			s.log.ErrorContext(ctx, "failed to reissue verification code", logger.UserID(userID), logger.Error(err))
		}
		return outward(err)
	}
	return nil
}

// CheckEnteredCode consumes the pending code if candidate matches it.
// Attempts are not limited here.
func (s *Service) CheckEnteredCode(ctx context.Context, userID uuid.UUID, candidate string) error {
	err := s.challenger.CheckEnteredCode(ctx, userID, candidate)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCodeMismatch):
		s.log.InfoContext(ctx, "verification code mismatch", logger.UserID(userID))
		return ErrCodeMismatch
	default:
		s.log.ErrorContext(ctx, "verification code check failed", logger.UserID(userID), logger.Error(err))
		return outward(err)
	}
}

// PendingCode returns the code the session id has to show its user.
func (s *Service) PendingCode(ctx context.Context, id Identity) (string, error) {
	code, err := s.challenger.PendingCode(ctx, id)
	if err != nil && !errors.Is(err, ErrNoPendingCode) {
		s.log.ErrorContext(ctx, "failed to read pending code", logger.UserID(id.UserID), logger.Error(err))
	}
	return code, outward(err)
}

// Logout removes the session of id.
func (s *Service) Logout(ctx context.Context, id Identity) error {
	err := s.store.Remove(ctx, id.UserID, id.Expiry)
	if err != nil && !errors.Is(err, ErrSessionMissing) {
		s.log.ErrorContext(ctx, "failed to remove session",
			logger.UserID(id.UserID), logger.SessionExpiry(id.Expiry), logger.Error(err))
	}
	return outward(err)
}

// LogoutAll removes every session of userID and any pending verification.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	expiries, err := s.store.List(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to list sessions", logger.UserID(userID), logger.Error(err))
		return outward(err)
	}

	for _, expiry := range expiries {
		if err := s.store.Remove(ctx, userID, expiry); err != nil && !errors.Is(err, ErrSessionMissing) {
			s.log.ErrorContext(ctx, "failed to remove session",
				logger.UserID(userID), logger.SessionExpiry(expiry), logger.Error(err))
			return outward(err)
		}
	}

	if err := s.challenger.accounts.ClearPendingVerification(ctx, userID); err != nil {
		s.log.ErrorContext(ctx, "failed to clear verification pointer", logger.UserID(userID), logger.Error(err))
		return ErrStoreWriteFailed
	}

	s.log.InfoContext(ctx, "all sessions removed", logger.UserID(userID), logger.Count("sessions", len(expiries)))
	return nil
}

// Sessions lists the user's valid sessions, most recently active first.
// Damaged entries met on the way are repaired and skipped.
func (s *Service) Sessions(ctx context.Context, userID uuid.UUID) ([]SessionInfo, error) {
	expiries, err := s.store.List(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to list sessions", logger.UserID(userID), logger.Error(err))
		return nil, outward(err)
	}

	out := make([]SessionInfo, 0, len(expiries))
	for _, expiry := range expiries {
		presence, err := s.store.Exists(ctx, userID, expiry)
		if err != nil {
			return nil, outward(err)
		}
		if presence != PresenceOK {
			continue
		}
		attrs, err := s.store.Get(ctx, userID, expiry)
		if errors.Is(err, ErrSessionMissing) {
			continue
		}
		if err != nil {
			return nil, outward(err)
		}
		if attrs.Banned {
			continue
		}

		label, handheld := describeDevice(attrs.UserAgent)
		out = append(out, SessionInfo{
			Expiry:      expiry,
			ExpiresAt:   time.Unix(expiry, 0),
			LastOnline:  time.Unix(attrs.LastOnline, 0),
			IP:          attrs.IP,
			UserAgent:   attrs.UserAgent,
			Device:      label,
			Handheld:    handheld,
			PendingCode: attrs.Code != "",
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].LastOnline.After(out[j].LastOnline) })
	return out, nil
}

func describeDevice(raw string) (string, bool) {
	if raw == "" {
		return "Unknown device", false
	}
	ua, err := useragent.Parse(raw)
	if err != nil {
		return "Unknown device", false
	}
	return ua.GetShortIdentifier(), ua.IsMobile() || ua.IsTablet()
}
