// internal/utils/utils.go

// Package utils provides small string-cleaning helpers shared across the
// extraction pipeline, plus the Logger and performance-tracking types used
// by the scheduler and coordinator. It is kept dependency-free within the
// internal packages to avoid cycles.
package utils

import (
	"html"
	"regexp"
	"strings"
)

// CleanString removes extra whitespace, HTML entities, and zero-width
// Unicode characters from scraped text. Free proxy listing sites routinely
// pad table cells with &nbsp; and similar artifacts.
//
// Example:
//
//	dirty := "  Hello&nbsp;&nbsp;World!  ​"
//	clean := utils.CleanString(dirty) // "Hello World!"
func CleanString(s string) string {
	if s == "" {
		return ""
	}

	s = html.UnescapeString(s)
	s = removeZeroWidth(s)
	s = normalizeWhitespace(s)
	s = strings.TrimSpace(s)

	return s
}

// removeZeroWidth removes zero-width Unicode characters that can interfere
// with text processing and display.
func removeZeroWidth(s string) string {
	zeroWidth := []rune{
		'​', // Zero-width space
		'‌', // Zero-width non-joiner
		'‍', // Zero-width joiner
		0xFEFF,   // Zero-width no-break space (BOM)
		'⁠', // Word joiner
	}

	var pattern strings.Builder
	pattern.WriteString("[")
	for _, r := range zeroWidth {
		pattern.WriteRune(r)
	}
	pattern.WriteString("]")

	re := regexp.MustCompile(pattern.String())
	return re.ReplaceAllString(s, "")
}

// normalizeWhitespace replaces sequences of whitespace characters with single spaces.
func normalizeWhitespace(s string) string {
	re := regexp.MustCompile(`[\s\p{Zs}]+`)
	return re.ReplaceAllString(s, " ")
}
