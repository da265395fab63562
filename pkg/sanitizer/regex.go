package sanitizer

import "regexp"

// Pre-compiled regular expressions for performance
var (
	// Email local-part normalization
	dotRegex = regexp.MustCompile(`\.+`)
)
