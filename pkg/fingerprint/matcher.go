package fingerprint

import (
	"errors"

	"github.com/dmitrymomot/authsession/core/cache"
	"github.com/dmitrymomot/authsession/pkg/useragent"
)

// parseCacheSize bounds the number of distinct User-Agent strings kept parsed.
const parseCacheSize = 4096

type parsed struct {
	ua  useragent.UserAgent
	err error
}

var parseCache = cache.NewLRUCache[string, parsed](parseCacheSize)

func parse(raw string) (useragent.UserAgent, error) {
	if p, ok := parseCache.Get(raw); ok {
		return p.ua, p.err
	}
	ua, err := useragent.Parse(raw)
	parseCache.Put(raw, parsed{ua: ua, err: err})
	return ua, err
}

// Field names reported by FieldError.
const (
	FieldBrowser        = "browser"
	FieldBrowserVersion = "browser_version"
	FieldEngine         = "engine"
	FieldEngineVersion  = "engine_version"
	FieldOS             = "os"
	FieldOSVersion      = "os_version"
	FieldDeviceType     = "device_type"
	FieldDeviceVendor   = "device_vendor"
	FieldDeviceModel    = "device_model"
	FieldCPU            = "cpu"
)

// MatchUserAgent reports whether candidate is an acceptable drift of stored.
// See CompareUserAgents for the policy.
func MatchUserAgent(stored, candidate string) bool {
	return CompareUserAgents(stored, candidate) == nil
}

// CompareUserAgents returns nil when candidate is the same client as stored,
// allowing for automatic browser upgrades. Any other difference yields an error
// that matches ErrMismatch.
//
// Policy:
//   - identical strings always match;
//   - browser, engine and OS names must be known on both sides and equal;
//   - device type, vendor, model and CPU architecture must be equal;
//   - browser and engine versions must be known on both sides and must not go down;
//   - OS version must be known on the candidate side, its value is not compared.
//
// A User-Agent that cannot be parsed never matches anything but itself.
func CompareUserAgents(stored, candidate string) error {
	if stored == candidate {
		return nil
	}

	s, err := parse(stored)
	if err != nil {
		return errors.Join(ErrMismatch, ErrUnparsable, err)
	}
	c, err := parse(candidate)
	if err != nil {
		return errors.Join(ErrMismatch, ErrUnparsable, err)
	}

	return Compare(s, c)
}

// Compare applies the CompareUserAgents policy to already parsed User-Agents.
func Compare(stored, candidate useragent.UserAgent) error {
	required := []struct {
		field string
		s, c  string
	}{
		{FieldBrowser, stored.BrowserName(), candidate.BrowserName()},
		{FieldEngine, stored.EngineName(), candidate.EngineName()},
		{FieldOS, stored.OS(), candidate.OS()},
	}
	for _, f := range required {
		if f.s == "" || f.s != f.c {
			return &FieldError{Field: f.field, Stored: f.s, Candidate: f.c}
		}
	}

	// unlike the fields above, empty on both sides matches: desktop agents carry no vendor or model
	equal := []struct {
		field string
		s, c  string
	}{
		{FieldDeviceType, stored.DeviceType(), candidate.DeviceType()},
		{FieldDeviceVendor, stored.DeviceVendor(), candidate.DeviceVendor()},
		{FieldDeviceModel, stored.DeviceModel(), candidate.DeviceModel()},
		{FieldCPU, stored.CPUArch(), candidate.CPUArch()},
	}
	for _, f := range equal {
		if f.s != f.c {
			return &FieldError{Field: f.field, Stored: f.s, Candidate: f.c}
		}
	}

	versions := []struct {
		field string
		s, c  string
	}{
		{FieldBrowserVersion, stored.BrowserVer(), candidate.BrowserVer()},
		{FieldEngineVersion, stored.EngineVer(), candidate.EngineVer()},
	}
	for _, f := range versions {
		if f.s == "" || f.c == "" || useragent.CompareVersions(f.c, f.s) < 0 {
			return &FieldError{Field: f.field, Stored: f.s, Candidate: f.c}
		}
	}

	if candidate.OSVer() == "" {
		return &FieldError{Field: FieldOSVersion, Stored: stored.OSVer()}
	}

	return nil
}
