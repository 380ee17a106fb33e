package session

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Token is a signed bearer token and its absolute expiry in epoch seconds.
type Token struct {
	Value  string
	Expiry int64
}

// ExpiresAt returns the expiry as time.
func (t Token) ExpiresAt() time.Time { return time.Unix(t.Expiry, 0) }

// Login is the outcome of Service.BeginLogin. Exactly one field is set.
type Login struct {
	// Token is the bearer token of a login that needed no approval.
	Token *Token
	// Ticket stands in for the token until the verification code is entered.
	Ticket *Token
}

// Identity is what a verified token proves. The pair identifies one session.
type Identity struct {
	UserID uuid.UUID
	Expiry int64
}

// Client describes the device a request comes from.
type Client struct {
	UserAgent string
	IP        string
}

// Record field names.
const (
	FieldUserAgent  = "ua"
	FieldIP         = "ip"
	FieldBanned     = "banned"
	FieldLastOnline = "last_online"
	FieldCode       = "code"
)

// Attributes is the server-side state of one session.
type Attributes struct {
	UserAgent  string
	IP         string
	Banned     bool
	LastOnline int64
	// Code is the pending verification code this session must relay, if any.
	Code string
}

func (a Attributes) fields() map[string]string {
	m := map[string]string{
		FieldUserAgent:  a.UserAgent,
		FieldIP:         a.IP,
		FieldBanned:     formatBool(a.Banned),
		FieldLastOnline: strconv.FormatInt(a.LastOnline, 10),
	}
	if a.Code != "" {
		m[FieldCode] = a.Code
	}
	return m
}

func parseAttributes(m map[string]string) Attributes {
	lastOnline, _ := strconv.ParseInt(m[FieldLastOnline], 10, 64)
	return Attributes{
		UserAgent:  m[FieldUserAgent],
		IP:         m[FieldIP],
		Banned:     m[FieldBanned] == "1",
		LastOnline: lastOnline,
		Code:       m[FieldCode],
	}
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Status is the outcome of validating a request against its session.
type Status int

const (
	StatusUnverified Status = iota
	StatusVerified
	StatusRefreshed
	StatusBlocked
	StatusMissing
	StatusServerError
	// StatusInvalid means the token itself did not verify; no session was looked up.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusRefreshed:
		return "refreshed"
	case StatusBlocked:
		return "blocked"
	case StatusMissing:
		return "missing"
	case StatusServerError:
		return "server_error"
	case StatusInvalid:
		return "invalid"
	default:
		return "unverified"
	}
}

// OK reports whether the request may proceed.
func (s Status) OK() bool {
	return s == StatusVerified || s == StatusRefreshed
}

// Result is returned by Service.VerifyOrRefresh.
type Result struct {
	Status   Status
	Identity Identity
	// Token is set only for StatusRefreshed and replaces the presented one.
	Token *Token
}

// SessionInfo describes one active session for listing.
type SessionInfo struct {
	Expiry     int64
	ExpiresAt  time.Time
	LastOnline time.Time
	IP         string
	UserAgent  string
	// Device is a short label such as "Chrome/120.0 (Windows, desktop)".
	Device string
	// Handheld is true for phones and tablets.
	Handheld bool
	// PendingCode is true when this session holds the verification code of a pending login.
	PendingCode bool
}
