// Package fingerprint decides whether two User-Agent strings belong to the same client.
//
// Sessions remember the User-Agent they were created with. On every request the
// stored value is compared with the one the client sends now. Browsers update
// themselves silently, so a byte-for-byte comparison would log users out after
// every release. CompareUserAgents parses both strings with pkg/useragent and
// tolerates version upgrades while rejecting anything that looks like a different
// device or a downgrade.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/authsession/pkg/fingerprint"
//
//	if err := fingerprint.CompareUserAgents(storedUA, r.UserAgent()); err != nil {
//		// Potential session hijacking
//		var fe *fingerprint.FieldError
//		if errors.As(err, &fe) {
//			log.Printf("changed field: %s", fe.Field)
//		}
//	}
//
// # Policy
//
//   - Chrome 100 on Windows 10 accepts Chrome 101 on Windows 10.
//   - Chrome 100 on Windows 10 rejects Chrome 99 on Windows 10.
//   - Chrome 100 on Windows 10 rejects Firefox 100 on Windows 10.
//   - Any change of OS, engine, device type/vendor/model or CPU architecture is rejected.
//   - Strings that cannot be parsed only match themselves.
//
// # Error Handling
//
// All rejections match ErrMismatch. Structural differences are reported as
// *FieldError, parse failures additionally match ErrUnparsable.
package fingerprint
