package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authcore/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "trims whitespace and converts to lowercase",
			input:    "  USER@EXAMPLE.COM  ",
			expected: "user@example.com",
		},
		{
			name:     "removes consecutive dots in local part",
			input:    "user..name@example.com",
			expected: "user.name@example.com",
		},
		{
			name:     "removes leading and trailing dots in local part",
			input:    ".user.name.@example.com",
			expected: "user.name@example.com",
		},
		{
			name:     "handles normal email",
			input:    "user@example.com",
			expected: "user@example.com",
		},
		{
			name:     "handles invalid email format",
			input:    "invalid-email",
			expected: "invalid-email",
		},
		{
			name:     "handles empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizer.NormalizeEmail(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExtractEmailDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "extracts domain from valid email",
			input:    "user@EXAMPLE.COM",
			expected: "example.com",
		},
		{
			name:     "handles email with spaces",
			input:    "  user@domain.org  ",
			expected: "domain.org",
		},
		{
			name:     "returns empty for invalid email",
			input:    "invalid-email",
			expected: "",
		},
		{
			name:     "returns empty for empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizer.ExtractEmailDomain(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "masks normal email",
			input:    "user@example.com",
			expected: "u***@example.com",
		},
		{
			name:     "masks single character local part",
			input:    "a@example.com",
			expected: "*@example.com",
		},
		{
			name:     "handles email with spaces",
			input:    "  testuser@domain.org  ",
			expected: "t*******@domain.org",
		},
		{
			name:     "handles invalid email format",
			input:    "invalid-email",
			expected: "invalid-email",
		},
		{
			name:     "handles empty local part",
			input:    "@example.com",
			expected: "@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizer.MaskEmail(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

