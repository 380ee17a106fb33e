package fingerprint

import "errors"

// Comparison errors that can be checked with errors.Is()
var (
	// ErrMismatch indicates the candidate User-Agent is not an acceptable drift of the stored one.
	// This could indicate a session hijacking attempt or a device change.
	ErrMismatch = errors.New("fingerprint mismatch")

	// ErrUnparsable indicates one of the User-Agent strings could not be parsed.
	// It is always joined with ErrMismatch.
	ErrUnparsable = errors.New("unparsable user agent")
)

// FieldError names the structural field that made two User-Agents diverge.
type FieldError struct {
	Field     string
	Stored    string
	Candidate string
}

func (e *FieldError) Error() string {
	return "fingerprint mismatch: " + e.Field + ": stored " + quote(e.Stored) + ", got " + quote(e.Candidate)
}

// Is reports FieldError as ErrMismatch.
func (e *FieldError) Is(target error) bool { return target == ErrMismatch }

func quote(s string) string {
	if s == "" {
		return "<none>"
	}
	return `"` + s + `"`
}
