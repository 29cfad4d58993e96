// Package utils provides common validation utilities and helpers
// for the harvester platform.
package utils

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Regex patterns for validation - initialized once for thread safety and performance
var (
	// CSS selector validation patterns
	elementSelectorPattern   *regexp.Regexp
	classSelectorPattern     *regexp.Regexp
	idSelectorPattern        *regexp.Regexp
	universalSelectorPattern *regexp.Regexp
	attributeSelectorPattern *regexp.Regexp
	pseudoClassPattern       *regexp.Regexp
	pseudoElementPattern     *regexp.Regexp
	complexSelectorPattern   *regexp.Regexp
	combinatorPattern        *regexp.Regexp
	compoundSelectorPattern  *regexp.Regexp
	normalizeSpacePattern    *regexp.Regexp

	// Security validation patterns
	javascriptProtocolPattern *regexp.Regexp
	cssExpressionPattern      *regexp.Regexp
	javascriptURLPattern      *regexp.Regexp
	importStatementPattern    *regexp.Regexp

	// CSS combinator pattern
	cssCombinatorPattern *regexp.Regexp

	regexInitOnce sync.Once
)

// initRegexPatterns initializes all regex patterns in a thread-safe manner
func initRegexPatterns() {
	regexInitOnce.Do(func() {
		elementSelectorPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
		classSelectorPattern = regexp.MustCompile(`^\.[a-zA-Z_-][a-zA-Z0-9_-]*$`)
		idSelectorPattern = regexp.MustCompile(`^#[a-zA-Z_-][a-zA-Z0-9_-]*$`)
		universalSelectorPattern = regexp.MustCompile(`^\*$`)
		attributeSelectorPattern = regexp.MustCompile(`^\[[a-zA-Z][a-zA-Z0-9-]*(?:[~|^$*]?=["']?[^"'\]]*["']?)?\]$`)
		pseudoClassPattern = regexp.MustCompile(`^:[a-zA-Z-]+(?:\([^)]*\))?$`)
		pseudoElementPattern = regexp.MustCompile(`^::[a-zA-Z-]{2,}$`)
		complexSelectorPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\[\].:_#>+~()"'=-]+$`)
		combinatorPattern = regexp.MustCompile(`\s*[>+~]\s*`)
		normalizeSpacePattern = regexp.MustCompile(`\s+`)

		elementSelectorComponent := `(?:[a-zA-Z][a-zA-Z0-9-]*|\*)?`
		classSelectorComponent := `(?:\.[a-zA-Z_-][a-zA-Z0-9_-]*)*`
		idSelectorComponent := `(?:#[a-zA-Z_-][a-zA-Z0-9_-]*)?`
		attributeSelectorComponent := `(?:\[[^\]]+\])*`
		pseudoClassComponent := `(?:\:[a-zA-Z-]+(?:\([^)]*\))?)*`
		pseudoElementComponent := `(?:\:\:[a-zA-Z-]+)*`

		compoundSelectorPattern = regexp.MustCompile(
			`^` +
				elementSelectorComponent +
				classSelectorComponent +
				idSelectorComponent +
				attributeSelectorComponent +
				pseudoClassComponent +
				pseudoElementComponent +
				`$`)

		javascriptProtocolPattern = regexp.MustCompile(`javascript:`)
		cssExpressionPattern = regexp.MustCompile(`expression\s*\(`)
		javascriptURLPattern = regexp.MustCompile(`\burl\s*\(\s*["']?javascript:`)
		importStatementPattern = regexp.MustCompile(`\bimport\b`)

		cssCombinatorPattern = regexp.MustCompile(`[>+~]\s*[a-zA-Z0-9\[\].:_#-]`)
	})
}

const (
	// MaxSelectorLength defines the maximum allowed length for CSS selectors
	MaxSelectorLength = 1000

	// MaxNestingDepth defines the maximum allowed nesting depth for CSS selectors
	MaxNestingDepth = 20
)

// ValidationError represents a structured validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
}

// Validator is the common interface every field-level validator below implements.
type Validator interface {
	Validate(value interface{}) *ValidationError
}

// SelectorValidator checks a configured CSS selector for syntactic
// validity and, in Strict mode, for the injection patterns a hostile
// source config could smuggle in (javascript: protocols, CSS
// expressions, import statements) — config.Validate runs every
// configured source selector through this in strict mode before the
// harvester starts pointing goquery at it.
type SelectorValidator struct {
	Required bool
	Strict   bool
}

// Validate implements the Validator interface for CSS selectors
func (sv *SelectorValidator) Validate(value interface{}) *ValidationError {
	initRegexPatterns()
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Message: "selector must be a string", Code: "INVALID_TYPE"}
	}

	if strings.TrimSpace(str) == "" {
		if sv.Required {
			return &ValidationError{Message: "selector is required", Code: "REQUIRED"}
		}
		return nil
	}

	if strings.ContainsAny(str, "@{};\\`") {
		return &ValidationError{
			Message: "selector contains invalid characters (@, {, }, ;, \\, `)",
			Code:    "INVALID_CHARACTERS",
		}
	}

	if strings.Contains(str, "<") && !isValidCSSCombinator(str) {
		return &ValidationError{Message: "selector contains HTML-like content", Code: "INVALID_HTML_CONTENT"}
	}

	if !isValidSelectorPattern(str) {
		return &ValidationError{Message: "selector does not match valid CSS selector syntax", Code: "INVALID_SYNTAX"}
	}

	if sv.Strict {
		if err := sv.validateSelectorSafety(str); err != nil {
			return err
		}
	}

	return nil
}

// validateSelectorSafety performs additional safety checks for strict mode
func (sv *SelectorValidator) validateSelectorSafety(selector string) *ValidationError {
	dangerousPatterns := []struct {
		pattern *regexp.Regexp
		message string
		code    string
	}{
		{javascriptProtocolPattern, "selector contains javascript: protocol", "DANGEROUS_PROTOCOL"},
		{cssExpressionPattern, "selector contains CSS expression", "CSS_EXPRESSION"},
		{javascriptURLPattern, "selector contains javascript URL", "JAVASCRIPT_URL"},
		{importStatementPattern, "selector contains import statement", "IMPORT_STATEMENT"},
	}

	for _, dangerous := range dangerousPatterns {
		if dangerous.pattern.MatchString(selector) {
			return &ValidationError{Message: dangerous.message, Code: dangerous.code}
		}
	}

	if len(selector) > MaxSelectorLength {
		return &ValidationError{
			Message: fmt.Sprintf("selector is too long (max %d characters)", MaxSelectorLength),
			Code:    "SELECTOR_TOO_LONG",
		}
	}

	nestingDepth := strings.Count(selector, " ") + strings.Count(selector, ">") + strings.Count(selector, "+") + strings.Count(selector, "~")
	if nestingDepth > MaxNestingDepth {
		return &ValidationError{
			Message: fmt.Sprintf("selector has too many nested levels (max %d)", MaxNestingDepth),
			Code:    "EXCESSIVE_NESTING",
		}
	}

	return nil
}

func isValidCSSCombinator(selector string) bool {
	initRegexPatterns()
	return cssCombinatorPattern.MatchString(selector)
}

// isValidSelectorPattern performs comprehensive CSS selector pattern validation
func isValidSelectorPattern(selector string) bool {
	initRegexPatterns()
	trimmed := strings.TrimSpace(selector)
	if trimmed == "" {
		return false
	}

	for _, sel := range strings.Split(trimmed, ",") {
		if !isValidSingleSelector(strings.TrimSpace(sel)) {
			return false
		}
	}
	return true
}

func isValidSingleSelector(selector string) bool {
	if selector == "" {
		return false
	}
	if strings.ContainsAny(selector, "@{};\\`") {
		return false
	}

	patterns := []*regexp.Regexp{
		elementSelectorPattern,
		classSelectorPattern,
		idSelectorPattern,
		universalSelectorPattern,
		attributeSelectorPattern,
		pseudoClassPattern,
		pseudoElementPattern,
		complexSelectorPattern,
	}

	for _, pattern := range patterns {
		if pattern.MatchString(selector) {
			return isValidComplexSelector(selector)
		}
	}

	return false
}

func isValidComplexSelector(selector string) bool {
	initRegexPatterns()
	normalized := normalizeSpacePattern.ReplaceAllString(strings.TrimSpace(selector), " ")
	parts := combinatorPattern.Split(normalized, -1)

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return false
		}
		if !isValidCompoundSelector(part) {
			return false
		}
	}

	return true
}

func isValidCompoundSelector(selector string) bool {
	initRegexPatterns()
	if selector == "" || selector == "*" {
		return true
	}
	return compoundSelectorPattern.MatchString(selector)
}
