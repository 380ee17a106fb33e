package session

import "errors"

// Errors returned by Service. Every failure crossing the package boundary is
// exactly one of these, so callers can switch on errors.Is without seeing
// store or crypto details.
var (
	// ErrTokenInvalid is returned for malformed, expired, too old or badly signed tokens.
	ErrTokenInvalid = errors.New("session: invalid token")
	// ErrSessionMissing is returned when no session exists for the token.
	ErrSessionMissing = errors.New("session: not found")
	// ErrSessionBlocked is returned when the session has been banned.
	ErrSessionBlocked = errors.New("session: blocked")
	// ErrStoreUnavailable is returned when the key-value store cannot be read.
	ErrStoreUnavailable = errors.New("session: store unavailable")
	// ErrStoreWriteFailed is returned when a write to the key-value store fails.
	ErrStoreWriteFailed = errors.New("session: store write failed")
	// ErrCodeMismatch is returned when the entered verification code is wrong.
	ErrCodeMismatch = errors.New("session: verification code mismatch")
	// ErrNoPendingCode is returned when there is no pending verification code to act on.
	ErrNoPendingCode = errors.New("session: no pending verification code")
	// ErrTokenSigning is returned when a token cannot be signed.
	ErrTokenSigning = errors.New("session: failed to sign token")
)

var (
	// ErrInvalidConfig is returned by constructors for unusable configuration.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// outward collapses an internal error chain to the closed error set above.
func outward(err error) error {
	if err == nil {
		return nil
	}
	// store failures win over whatever else the chain says
	for _, target := range []error{
		ErrStoreWriteFailed,
		ErrStoreUnavailable,
		ErrTokenInvalid,
		ErrTokenSigning,
		ErrSessionBlocked,
		ErrCodeMismatch,
		ErrNoPendingCode,
		ErrSessionMissing,
	} {
		if errors.Is(err, target) {
			return target
		}
	}
	return ErrStoreUnavailable
}
