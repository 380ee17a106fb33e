// Package clientip resolves the address of the client behind proxies and CDNs.
//
// GetIP looks at the following sources and returns the first valid address:
//  1. CF-Connecting-IP
//  2. DO-Connecting-IP
//  3. X-Forwarded-For, leftmost entry
//  4. X-Real-IP
//  5. RemoteAddr
//
// Addresses are parsed and printed back in canonical form, so
// "::ffff:192.0.2.1" and "192.0.2.1" are reported the same way. 0.0.0.0 and ::
// are ignored. When nothing parses, the raw RemoteAddr is returned.
//
//	client := session.Client{IP: clientip.GetIP(r), UserAgent: r.UserAgent()}
//
// Forwarding headers are trusted as sent. Deploy behind a proxy that
// overwrites them.
package clientip
