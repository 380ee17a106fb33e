package useragent

import (
	"regexp"
	"strings"
)

type rule struct {
	name string
	re   *regexp.Regexp
}

// Order matters: branded Chromium browsers also carry a Chrome token,
// and almost everything carries a Safari token.
var browserRules = []rule{
	{"Edge", regexp.MustCompile(`\bEdg(?:e|A|iOS)?/([\d.]+)`)},
	{"Opera", regexp.MustCompile(`\bOPR/([\d.]+)`)},
	{"Opera", regexp.MustCompile(`\bOpera\b.*\bVersion/([\d.]+)`)},
	{"Samsung Internet", regexp.MustCompile(`\bSamsungBrowser/([\d.]+)`)},
	{"Yandex", regexp.MustCompile(`\bYaBrowser/([\d.]+)`)},
	{"Firefox", regexp.MustCompile(`\b(?:Firefox|FxiOS)/([\d.]+)`)},
	{"Chrome Headless", regexp.MustCompile(`\bHeadlessChrome/([\d.]+)`)},
	{"Chromium", regexp.MustCompile(`\bChromium/([\d.]+)`)},
	{"Chrome", regexp.MustCompile(`\b(?:Chrome|CriOS)/([\d.]+)`)},
	{"Safari", regexp.MustCompile(`\bVersion/([\d.]+).*\bSafari/`)},
	{"IE", regexp.MustCompile(`\bMSIE ([\d.]+)`)},
	{"IE", regexp.MustCompile(`\bTrident/.*\brv:([\d.]+)`)},
}

var botRules = []rule{
	{"Googlebot", regexp.MustCompile(`(?i)\bGooglebot(?:-[a-z]+)?/([\d.]+)`)},
	{"Bingbot", regexp.MustCompile(`(?i)\bbingbot/([\d.]+)`)},
	{"YandexBot", regexp.MustCompile(`(?i)\bYandexBot/([\d.]+)`)},
	{"DuckDuckBot", regexp.MustCompile(`(?i)\bDuckDuckBot(?:-Https)?/([\d.]+)`)},
	{"Baiduspider", regexp.MustCompile(`(?i)\bBaiduspider(?:-[a-z]+)?/([\d.]+)`)},
	{"Applebot", regexp.MustCompile(`(?i)\bApplebot/([\d.]+)`)},
	{"facebookexternalhit", regexp.MustCompile(`(?i)\bfacebookexternalhit/([\d.]+)`)},
	{"Twitterbot", regexp.MustCompile(`(?i)\bTwitterbot/([\d.]+)`)},
	{"Slackbot", regexp.MustCompile(`(?i)\bSlackbot(?:-LinkExpanding)?\s?([\d.]*)`)},
	{"LinkedInBot", regexp.MustCompile(`(?i)\bLinkedInBot/([\d.]+)`)},
}

var genericBot = regexp.MustCompile(`(?i)\b[\w-]*(?:bot|crawler|spider)\b`)

var (
	reTrident   = regexp.MustCompile(`\bTrident/([\d.]+)`)
	reEdgeHTML  = regexp.MustCompile(`\bEdge/([\d.]+)`)
	reBlink     = regexp.MustCompile(`\b(?:Chrome|Chromium|HeadlessChrome)/([\d.]+)`)
	reGecko     = regexp.MustCompile(`\brv:([\d.]+)\)\s*Gecko/`)
	reWebKit    = regexp.MustCompile(`\bAppleWebKit/([\d.]+)`)
	rePresto    = regexp.MustCompile(`\bPresto/([\d.]+)`)
	reIOSDevice = regexp.MustCompile(`\((iPhone|iPad|iPod)\b`)
	reProduct   = regexp.MustCompile(`^([A-Za-z][\w.-]*)/([\d][\w.]*)`)
)

var (
	reWinPhone = regexp.MustCompile(`\bWindows Phone(?: OS)? ([\d.]+)`)
	reWindows  = regexp.MustCompile(`\bWindows NT ([\d.]+)`)
	reIOS      = regexp.MustCompile(`\((?:iPhone|iPad|iPod)[^)]*?\bOS ([\d_]+)`)
	reAndroid  = regexp.MustCompile(`\bAndroid(?:[ /]([\d.]+))?`)
	reCrOS     = regexp.MustCompile(`\bCrOS \S+ ([\d.]+)`)
	reMacOS    = regexp.MustCompile(`\bMac OS X(?: ([\d_.]+))?`)
	reUbuntu   = regexp.MustCompile(`\bUbuntu(?:/([\d.]+))?`)
	reFedora   = regexp.MustCompile(`\bFedora(?:/([\d.\-\w]+))?`)
	reLinux    = regexp.MustCompile(`\bLinux\b`)
)

var windowsVersions = map[string]string{
	"10.0": "10",
	"6.3":  "8.1",
	"6.2":  "8",
	"6.1":  "7",
	"6.0":  "Vista",
	"5.2":  "XP",
	"5.1":  "XP",
	"5.0":  "2000",
}

var (
	reAndroidModel = regexp.MustCompile(`\bAndroid[^;)]*;\s*(?:[a-z]{2}[-_][a-zA-Z]{2};\s*)?([^;)]+?)(?:\s+Build/[^;)]*)?\)`)
	reTV           = regexp.MustCompile(`(?i)\b(?:SmartTV|SMART-TV|GoogleTV|AppleTV|Web0S|HbbTV|BRAVIA)\b|\bTizen\b.*\bTV\b`)
	reConsole      = regexp.MustCompile(`\b(?:PlayStation|Xbox|Nintendo)\b`)
)

var androidVendors = []struct {
	prefix string
	vendor string
}{
	{"SM-", "Samsung"},
	{"GT-", "Samsung"},
	{"SAMSUNG", "Samsung"},
	{"Pixel", "Google"},
	{"Nexus", "Google"},
	{"LG-", "LG"},
	{"LM-", "LG"},
	{"Redmi", "Xiaomi"},
	{"Mi ", "Xiaomi"},
	{"POCO", "Xiaomi"},
	{"HUAWEI", "Huawei"},
	{"ONEPLUS", "OnePlus"},
	{"moto", "Motorola"},
	{"CPH", "OPPO"},
	{"vivo", "Vivo"},
	{"Nokia", "Nokia"},
}

var (
	reAMD64 = regexp.MustCompile(`(?i)\b(?:x86_64|x64|win64|wow64|amd64)\b`)
	reARM64 = regexp.MustCompile(`(?i)\b(?:aarch64|arm64|armv8l?)\b`)
	reARM   = regexp.MustCompile(`(?i)\b(?:armv7l?|armv6l?|arm)\b`)
	reIA32  = regexp.MustCompile(`(?i)\b(?:i[3-6]86|x86|ia32)\b`)
	rePPC   = regexp.MustCompile(`(?i)\b(?:ppc|powerpc)\b`)
)

// Parse extracts browser, engine, OS, device and CPU information from a User-Agent header.
func Parse(raw string) (UserAgent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UserAgent{}, ErrEmptyUserAgent
	}

	ua := UserAgent{raw: raw}

	ua.osName, ua.osVer = detectOS(raw)
	ua.cpuArch = detectCPU(raw)

	if name, ver, ok := detectBot(raw); ok {
		ua.browserName, ua.browserVer = name, ver
		ua.deviceType = DeviceTypeBot
		return ua, nil
	}

	ua.browserName, ua.browserVer = detectBrowser(raw)
	ua.engineName, ua.engineVer = detectEngine(raw)
	ua.deviceType, ua.deviceVendor, ua.deviceModel = detectDevice(raw, ua.osName)

	if ua.browserName == "" {
		// Device model names can contain "bot", so the generic pattern only
		// applies once no real browser was found.
		if m := genericBot.FindString(raw); m != "" {
			ua.browserName = m
			ua.deviceType = DeviceTypeBot
			ua.engineName, ua.engineVer = "", ""
			ua.deviceVendor, ua.deviceModel = "", ""
			return ua, nil
		}
		m := reProduct.FindStringSubmatch(raw)
		if m == nil {
			return UserAgent{}, ErrMalformedUserAgent
		}
		// Mozilla/x.y alone says nothing about the client.
		if m[1] != "Mozilla" {
			ua.browserName, ua.browserVer = m[1], m[2]
		} else if ua.osName == "" {
			return UserAgent{}, ErrMalformedUserAgent
		}
	}

	return ua, nil
}

func detectBot(raw string) (string, string, bool) {
	for _, r := range botRules {
		if m := r.re.FindStringSubmatch(raw); m != nil {
			return r.name, m[1], true
		}
	}
	return "", "", false
}

func detectBrowser(raw string) (string, string) {
	for _, r := range browserRules {
		if m := r.re.FindStringSubmatch(raw); m != nil {
			return r.name, m[1]
		}
	}
	return "", ""
}

func detectEngine(raw string) (string, string) {
	if m := reTrident.FindStringSubmatch(raw); m != nil {
		return "Trident", m[1]
	}
	if m := reEdgeHTML.FindStringSubmatch(raw); m != nil {
		return "EdgeHTML", m[1]
	}
	// Every browser on iOS is WebKit, whatever it calls itself.
	if reIOSDevice.MatchString(raw) {
		if m := reWebKit.FindStringSubmatch(raw); m != nil {
			return "WebKit", m[1]
		}
	}
	if m := reBlink.FindStringSubmatch(raw); m != nil {
		return "Blink", m[1]
	}
	if m := reGecko.FindStringSubmatch(raw); m != nil {
		return "Gecko", m[1]
	}
	if m := reWebKit.FindStringSubmatch(raw); m != nil {
		return "WebKit", m[1]
	}
	if m := rePresto.FindStringSubmatch(raw); m != nil {
		return "Presto", m[1]
	}
	return "", ""
}

func detectOS(raw string) (string, string) {
	if m := reWinPhone.FindStringSubmatch(raw); m != nil {
		return "Windows Phone", m[1]
	}
	if m := reWindows.FindStringSubmatch(raw); m != nil {
		if v, ok := windowsVersions[m[1]]; ok {
			return "Windows", v
		}
		return "Windows", m[1]
	}
	if m := reIOS.FindStringSubmatch(raw); m != nil {
		return "iOS", strings.ReplaceAll(m[1], "_", ".")
	}
	if m := reAndroid.FindStringSubmatch(raw); m != nil {
		return "Android", m[1]
	}
	if m := reCrOS.FindStringSubmatch(raw); m != nil {
		return "Chrome OS", m[1]
	}
	if m := reMacOS.FindStringSubmatch(raw); m != nil {
		return "macOS", strings.ReplaceAll(m[1], "_", ".")
	}
	if m := reUbuntu.FindStringSubmatch(raw); m != nil {
		return "Ubuntu", m[1]
	}
	if m := reFedora.FindStringSubmatch(raw); m != nil {
		return "Fedora", m[1]
	}
	if reLinux.MatchString(raw) {
		return "Linux", ""
	}
	return "", ""
}

func detectDevice(raw, osName string) (typ, vendor, model string) {
	switch {
	case strings.Contains(raw, "iPad"):
		return DeviceTypeTablet, "Apple", "iPad"
	case strings.Contains(raw, "iPhone"):
		return DeviceTypeMobile, "Apple", "iPhone"
	case strings.Contains(raw, "iPod"):
		return DeviceTypeMobile, "Apple", "iPod touch"
	case reTV.MatchString(raw):
		return DeviceTypeTV, "", ""
	case reConsole.MatchString(raw):
		return DeviceTypeConsole, "", ""
	case osName == "Android":
		typ = DeviceTypeTablet
		if strings.Contains(raw, "Mobile") {
			typ = DeviceTypeMobile
		}
		if m := reAndroidModel.FindStringSubmatch(raw); m != nil {
			model = strings.TrimSpace(m[1])
			vendor = androidVendor(model)
		}
		return typ, vendor, model
	case osName == "Windows Phone":
		return DeviceTypeMobile, "", ""
	case strings.Contains(raw, "Macintosh"):
		return DeviceTypeDesktop, "Apple", "Macintosh"
	case strings.Contains(raw, "Mobile"):
		return DeviceTypeMobile, "", ""
	}
	return DeviceTypeDesktop, "", ""
}

func androidVendor(model string) string {
	upper := strings.ToUpper(model)
	for _, v := range androidVendors {
		if strings.HasPrefix(upper, strings.ToUpper(v.prefix)) {
			return v.vendor
		}
	}
	return ""
}

func detectCPU(raw string) string {
	switch {
	case reAMD64.MatchString(raw):
		return "amd64"
	case reARM64.MatchString(raw):
		return "arm64"
	case reARM.MatchString(raw):
		return "arm"
	case reIA32.MatchString(raw):
		return "ia32"
	case rePPC.MatchString(raw):
		return "ppc"
	}
	return ""
}
