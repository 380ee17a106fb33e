package useragent

import (
	"strings"
)

// Device type identifiers returned by DeviceType.
const (
	DeviceTypeDesktop = "desktop"
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeBot     = "bot"
	DeviceTypeTV      = "smarttv"
	DeviceTypeConsole = "console"
)

// UserAgent is the structured form of a User-Agent header.
// Empty strings mean the field could not be detected.
type UserAgent struct {
	raw string

	browserName string
	browserVer  string

	engineName string
	engineVer  string

	osName string
	osVer  string

	deviceType   string
	deviceModel  string
	deviceVendor string

	cpuArch string
}

// New builds a UserAgent from already known parts. Useful as a fallback when Parse fails.
func New(raw, deviceType, deviceModel, os, browserName, browserVer string) UserAgent {
	return UserAgent{
		raw:         raw,
		deviceType:  deviceType,
		deviceModel: deviceModel,
		osName:      os,
		browserName: browserName,
		browserVer:  browserVer,
	}
}

// String returns the original header value.
func (u UserAgent) String() string { return u.raw }

// BrowserName returns the browser family, e.g. "Chrome".
func (u UserAgent) BrowserName() string { return u.browserName }

// BrowserVer returns the full browser version, e.g. "120.0.6099.71".
func (u UserAgent) BrowserVer() string { return u.browserVer }

// EngineName returns the rendering engine, e.g. "Blink", "Gecko", "WebKit".
func (u UserAgent) EngineName() string { return u.engineName }

// EngineVer returns the rendering engine version.
func (u UserAgent) EngineVer() string { return u.engineVer }

// OS returns the operating system name, e.g. "Windows", "iOS".
func (u UserAgent) OS() string { return u.osName }

// OSVer returns the operating system version, e.g. "10", "17.1".
func (u UserAgent) OSVer() string { return u.osVer }

// DeviceType returns one of the DeviceType constants. Never empty after Parse.
func (u UserAgent) DeviceType() string { return u.deviceType }

// DeviceModel returns the device model, e.g. "iPhone", "SM-G991B".
func (u UserAgent) DeviceModel() string { return u.deviceModel }

// DeviceVendor returns the device manufacturer, e.g. "Apple", "Samsung".
func (u UserAgent) DeviceVendor() string { return u.deviceVendor }

// CPUArch returns the CPU architecture, e.g. "amd64", "arm64", "ia32".
func (u UserAgent) CPUArch() string { return u.cpuArch }

func (u UserAgent) IsMobile() bool  { return u.deviceType == DeviceTypeMobile }
func (u UserAgent) IsTablet() bool  { return u.deviceType == DeviceTypeTablet }
func (u UserAgent) IsDesktop() bool { return u.deviceType == DeviceTypeDesktop }
func (u UserAgent) IsBot() bool     { return u.deviceType == DeviceTypeBot }

// GetShortIdentifier returns a compact human readable label,
// e.g. "Chrome/120.0 (Windows, desktop)" or "Bot: Googlebot".
func (u UserAgent) GetShortIdentifier() string {
	if u.IsBot() {
		if u.browserName == "" {
			return "Bot"
		}
		return "Bot: " + u.browserName
	}

	var b strings.Builder
	if u.browserName == "" {
		b.WriteString("Unknown browser")
	} else {
		b.WriteString(u.browserName)
		if v := majorMinor(u.browserVer); v != "" {
			b.WriteString("/")
			b.WriteString(v)
		}
	}

	osName := u.osName
	if osName == "" {
		osName = "Unknown OS"
	}
	b.WriteString(" (")
	b.WriteString(osName)
	b.WriteString(", ")
	b.WriteString(u.deviceType)
	b.WriteString(")")
	return b.String()
}

func majorMinor(v string) string {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) == 1 {
		if parts[0] == "" {
			return ""
		}
		return parts[0] + ".0"
	}
	return parts[0] + "." + parts[1]
}
