// Package session manages bearer-token sessions backed by a key-value store.
//
// A session is identified by the pair (user ID, token expiry). The token is a
// signed JWT carrying both; the server keeps one attribute record per session
// plus a per-user index of active expiries. On every protected request the
// token is verified, the session is looked up, the client's user agent is
// compared with the stored one, and tokens close to expiry are rotated.
//
// # Core Components
//
//   - Codec: signs and verifies tokens (pkg/jwt, HS256, max age)
//   - Store: index set and attribute hash per session over core/kvstore
//   - Validator: per-request state machine (Verified, Refreshed, Blocked, Missing, ServerError)
//   - Refresher: rotates a token and its session
//   - Challenger: picks the session that must approve a new login and manages its code
//   - Service: the facade used by HTTP handlers and middleware
//
// # Basic Usage
//
//	var cfg session.Config
//	config.MustLoad(&cfg)
//
//	svc, err := session.NewService(cfg, redis.NewKVStore(client), nil,
//		session.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//
//	// after the password check
//	required, err := svc.IsVerificationRequired(ctx, userID)
//	if required {
//		// ask for the code shown on the user's most recent device
//	}
//	token, err := svc.CreateSession(ctx, userID, session.Client{UserAgent: r.UserAgent(), IP: ip})
//
//	// on every request
//	res, err := svc.VerifyOrRefresh(ctx, bearer, session.Client{UserAgent: r.UserAgent(), IP: ip})
//	switch {
//	case errors.Is(err, session.ErrTokenInvalid), errors.Is(err, session.ErrSessionMissing),
//		errors.Is(err, session.ErrSessionBlocked):
//		// 401, force re-authentication
//	case err != nil:
//		// 500
//	case res.Token != nil:
//		// send res.Token.Value back to the client
//	}
//
// # Consistency
//
// Index and record are written without a transaction. A request that dies
// between the two writes leaves a damaged session; Store.Exists detects it on
// the next lookup, deletes the surviving half and reports the session missing.
// The index TTL is only ever extended, so it never expires before a record it lists.
//
// # User Agent Drift
//
// Browser upgrades are tolerated, any other change of the user agent bans the
// session. See pkg/fingerprint for the exact policy.
//
// # Verification Codes
//
// When a user with live sessions logs in again, IsVerificationRequired picks
// the most recently active session and attaches a numeric code to it. That
// session reads the code with PendingCode and the user types it on the new
// device, where CheckEnteredCode consumes it. There is at most one pending
// code per user. Attempts are not limited in this package; rate limit
// CheckEnteredCode at the HTTP layer.
//
// # Error Handling
//
// Service methods return only the sentinel errors declared in errors.go.
// Raw store and crypto errors are logged, never returned.
package session
