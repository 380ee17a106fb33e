// Package useragent provides User-Agent string parsing to extract browser, rendering
// engine, operating system, device and CPU information.
//
// The package identifies device types (mobile, desktop, tablet, bot, TV, console),
// device vendors and models, operating systems and browser/engine versions, which is
// enough to compare two User-Agent strings structurally rather than byte for byte.
//
// # Basic Usage
//
//	ua, err := useragent.Parse(r.Header.Get("User-Agent"))
//	if err != nil {
//		log.Printf("Failed to parse User-Agent: %v", err)
//		return
//	}
//
//	fmt.Printf("Device: %s\n", ua.DeviceType())   // "mobile"
//	fmt.Printf("OS: %s %s\n", ua.OS(), ua.OSVer()) // "iOS 17.1"
//	fmt.Printf("Browser: %s\n", ua.BrowserName()) // "Safari"
//	fmt.Printf("Engine: %s\n", ua.EngineName())   // "WebKit"
//	fmt.Printf("Model: %s\n", ua.DeviceModel())   // "iPhone"
//
// # Versions
//
// CompareVersions orders dotted version strings numerically:
//
//	useragent.CompareVersions("101.0.4951.41", "100.0.4896.75") // 1
//
// # Error Handling
//
//	ua, err := useragent.Parse(userAgentString)
//	switch {
//	case errors.Is(err, useragent.ErrEmptyUserAgent):
//	case errors.Is(err, useragent.ErrMalformedUserAgent):
//	}
package useragent
