package useragent_test

import (
	"testing"

	"github.com/dmitrymomot/authcore/pkg/useragent"

	"github.com/stretchr/testify/assert"
)

// TestParseOSDetection tests the OS detection with various edge cases
func TestParseOSDetection(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		expected string
	}{
		{
			name:     "Windows Phone",
			ua:       "mozilla/5.0 (compatible; msie 10.0; windows phone 8.0; trident/6.0; iuniverse/2.5.0.108; 730; 480; nokia; lumia 730 dual sim)",
			expected: useragent.OSWindowsPhone,
		},
		{
			name:     "HarmonyOS",
			ua:       "mozilla/5.0 (linux; android 10; harmonyos; nova 7 5g) applewebkit/537.36 (khtml, like gecko) chrome/88.0.4324.93 mobile safari/537.36",
			expected: useragent.OSAndroid, // It's being detected as Android based on current implementation precedence
		},
		{
			name:     "FireOS",
			ua:       "mozilla/5.0 (linux; android 9; kfmawi) applewebkit/537.36 (khtml, like gecko) silk/95.3.72 like chrome/95.0.4638.74 safari/537.36",
			expected: useragent.OSAndroid, // It's being detected as Android based on current implementation precedence
		},
		{
			name:     "ChromeOS",
			ua:       "mozilla/5.0 (x11; cros x86_64 14268.67.0) applewebkit/537.36 (khtml, like gecko) chrome/98.0.4758.107 safari/537.36",
			expected: useragent.OSChromeOS,
		},
		{
			name:     "Linux with X11",
			ua:       "mozilla/5.0 (x11; linux x86_64) applewebkit/537.36 (khtml, like gecko) chrome/91.0.4472.124 safari/537.36",
			expected: useragent.OSLinux,
		},
		{
			name:     "Linux with Debian",
			ua:       "mozilla/5.0 (x11; debian; linux x86_64) applewebkit/537.36 (khtml, like gecko) chrome/91.0.4472.124 safari/537.36",
			expected: useragent.OSLinux,
		},
		{
			name:     "Unknown OS",
			ua:       "some completely unknown user agent",
			expected: useragent.OSUnknown,
		},
		{
			name:     "Empty UA",
			ua:       "",
			expected: useragent.OSUnknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := useragent.ParseOS(tc.ua)
			assert.Equal(t, tc.expected, result)
		})
	}
}

// TestParseOSVersion tests version extraction for detected operating systems
func TestParseOSVersion(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		os       string
		expected string
	}{
		{
			name:     "Windows NT 10.0 maps to marketing name",
			ua:       "mozilla/5.0 (windows nt 10.0; win64; x64) applewebkit/537.36 (khtml, like gecko) chrome/120.0.0.0 safari/537.36",
			os:       useragent.OSWindows,
			expected: "10",
		},
		{
			name:     "Windows NT 6.1 maps to 7",
			ua:       "mozilla/5.0 (windows nt 6.1; wow64) applewebkit/537.36 (khtml, like gecko) chrome/49.0.2623.112 safari/537.36",
			os:       useragent.OSWindows,
			expected: "7",
		},
		{
			name:     "iOS underscores become dots",
			ua:       "mozilla/5.0 (iphone; cpu iphone os 16_6 like mac os x) applewebkit/605.1.15 (khtml, like gecko) version/16.6 mobile/15e148 safari/604.1",
			os:       useragent.OSiOS,
			expected: "16.6",
		},
		{
			name:     "macOS underscores become dots",
			ua:       "mozilla/5.0 (macintosh; intel mac os x 10_15_7) applewebkit/537.36 (khtml, like gecko) chrome/120.0.0.0 safari/537.36",
			os:       useragent.OSMacOS,
			expected: "10.15.7",
		},
		{
			name:     "Android",
			ua:       "mozilla/5.0 (linux; android 13; pixel 7) applewebkit/537.36 (khtml, like gecko) chrome/120.0.0.0 mobile safari/537.36",
			os:       useragent.OSAndroid,
			expected: "13",
		},
		{
			name:     "ChromeOS build version",
			ua:       "mozilla/5.0 (x11; cros x86_64 14268.67.0) applewebkit/537.36 (khtml, like gecko) chrome/98.0.4758.107 safari/537.36",
			os:       useragent.OSChromeOS,
			expected: "14268.67.0",
		},
		{
			name:     "Windows Phone",
			ua:       "mozilla/5.0 (compatible; msie 10.0; windows phone 8.0; trident/6.0; nokia; lumia 920)",
			os:       useragent.OSWindowsPhone,
			expected: "8.0",
		},
		{
			name:     "Linux carries no version",
			ua:       "mozilla/5.0 (x11; linux x86_64) applewebkit/537.36 (khtml, like gecko) chrome/91.0.4472.124 safari/537.36",
			os:       useragent.OSLinux,
			expected: "",
		},
		{
			name:     "Empty UA",
			ua:       "",
			os:       useragent.OSWindows,
			expected: "",
		},
		{
			name:     "Version missing from UA",
			ua:       "mozilla/5.0 (windows; u) gecko/20100101 firefox/115.0",
			os:       useragent.OSWindows,
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := useragent.ParseOSVersion(tc.ua, tc.os)
			assert.Equal(t, tc.expected, result)
		})
	}
}

// TestOSAccessors tests the OS accessor methods on UserAgent
func TestOSAccessors(t *testing.T) {
	ua := useragent.New(
		"test-user-agent-string",
		useragent.DeviceTypeDesktop,
		"",
		useragent.OSWindows,
		useragent.BrowserChrome,
		"91.0.4472.124",
	)

	assert.Equal(t, useragent.OSWindows, ua.OS())
}
