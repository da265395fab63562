// Package sanitizer provides helper functions for cleaning and normalising
// e-mail addresses before they are stored, compared or logged.
//
// The package is completely stateless and depends only on the Go standard
// library. All helpers are implemented as small, focused functions that can be
// freely combined.
//
// # Usage
//
// Import the package using its module-qualified path:
//
//	import "github.com/dmitrymomot/authcore/pkg/sanitizer"
//
// Example – e-mail address normalisation:
//
//	raw   := "  John.Doe...@Example.COM "
//	email := sanitizer.NormalizeEmail(raw)
//	// email == "john.doe@example.com"
//
// Example – masking an address before it reaches a log line:
//
//	masked := sanitizer.MaskEmail("john.doe@example.com")
//	// masked == "j*******@example.com"
//
// # Error handling
//
// None of the helpers returns an error – they always fall back to a safe result
// (usually the original input or an empty string) if sanitisation fails.
//
// Because there is no global state the helpers are safe for use from multiple
// goroutines concurrently.
package sanitizer
