package useragent

import (
	"regexp"
	"strings"
)

// OS detection keyword sets optimized for common traffic patterns
var (
	windowsPhoneKeywords = newKeywordSet("windows phone")
	windowsKeywords      = newKeywordSet("windows")
	iOSKeywords          = newKeywordSet("iphone", "ipad", "ipod")
	macOSKeywords        = newKeywordSet("macintosh", "mac os x")
	harmonyOSKeywords    = newKeywordSet("harmonyos")
	androidKeywords      = newKeywordSet("android")
	fireOSKeywords       = newKeywordSet("kindle", "silk")
	chromeOSKeywords     = newKeywordSet("cros", "chromeos", "chrome os")
	linuxKeywords        = newKeywordSet("linux", "ubuntu", "debian", "fedora", "mint", "x11")
)

// ParseOS identifies operating systems using keyword matching.
// Order reflects typical web traffic patterns: Windows first, then mobile OSes.
func ParseOS(lowerUA string) string {
	if lowerUA == "" {
		return OSUnknown
	}

	// Windows dominates desktop traffic, check it first
	if windowsKeywords.contains(lowerUA) {
		if windowsPhoneKeywords.contains(lowerUA) {
			return OSWindowsPhone
		}
		return OSWindows
	}

	if iOSKeywords.contains(lowerUA) {
		return OSiOS
	}

	if macOSKeywords.contains(lowerUA) {
		return OSMacOS
	}

	// Android check includes fallback for edge cases where keyword detection fails
	if androidKeywords.contains(lowerUA) || strings.Contains(lowerUA, "android") {
		return OSAndroid
	}

	// Less common OSes use keyword sets for maintainability
	if harmonyOSKeywords.contains(lowerUA) {
		return OSHarmonyOS
	}

	if fireOSKeywords.contains(lowerUA) {
		return OSFireOS
	}

	if chromeOSKeywords.contains(lowerUA) {
		return OSChromeOS
	}

	if linuxKeywords.contains(lowerUA) {
		return OSLinux
	}

	return OSUnknown
}

// OS version extraction patterns, keyed by detected OS
var (
	windowsNTVersionPattern    = regexp.MustCompile(`windows nt (\d+(?:\.\d+)?)`)
	windowsPhoneVersionPattern = regexp.MustCompile(`windows phone (?:os )?(\d+(?:\.\d+)*)`)
	iOSVersionPattern          = regexp.MustCompile(`(?:iphone|ipad|ipod).*? os (\d+(?:[._]\d+)*)`)
	macOSVersionPattern        = regexp.MustCompile(`mac os x (\d+(?:[._]\d+)*)`)
	androidVersionPattern      = regexp.MustCompile(`android (\d+(?:\.\d+)*)`)
	chromeOSVersionPattern     = regexp.MustCompile(`cros \S+ (\d+(?:\.\d+)*)`)
)

// Windows NT kernel versions map to marketing names
var windowsNTVersions = map[string]string{
	"10.0": "10",
	"6.3":  "8.1",
	"6.2":  "8",
	"6.1":  "7",
	"6.0":  "Vista",
	"5.2":  "XP",
	"5.1":  "XP",
}

// ParseOSVersion extracts the OS version for a previously detected OS.
// Returns an empty string when the version cannot be determined.
func ParseOSVersion(lowerUA, os string) string {
	if lowerUA == "" {
		return ""
	}

	switch os {
	case OSWindows:
		if m := windowsNTVersionPattern.FindStringSubmatch(lowerUA); len(m) > 1 {
			if name, ok := windowsNTVersions[m[1]]; ok {
				return name
			}
			return m[1]
		}
	case OSWindowsPhone:
		if m := windowsPhoneVersionPattern.FindStringSubmatch(lowerUA); len(m) > 1 {
			return m[1]
		}
	case OSiOS:
		if m := iOSVersionPattern.FindStringSubmatch(lowerUA); len(m) > 1 {
			return strings.ReplaceAll(m[1], "_", ".")
		}
	case OSMacOS:
		if m := macOSVersionPattern.FindStringSubmatch(lowerUA); len(m) > 1 {
			return strings.ReplaceAll(m[1], "_", ".")
		}
	case OSAndroid, OSFireOS, OSHarmonyOS:
		if m := androidVersionPattern.FindStringSubmatch(lowerUA); len(m) > 1 {
			return m[1]
		}
	case OSChromeOS:
		if m := chromeOSVersionPattern.FindStringSubmatch(lowerUA); len(m) > 1 {
			return m[1]
		}
	}

	return ""
}
