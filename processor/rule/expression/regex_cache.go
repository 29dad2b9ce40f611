// Package expression - Regex pattern caching
package expression

import (
	"fmt"
	"regexp"
	"strings"
)

// compileRegex returns a cached compiled regex or compiles and caches a new one
func (e *Evaluator) compileRegex(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("regex pattern must not be empty")
	}
	return e.regexes.GetOrCompute(pattern, func() (*regexp.Regexp, error) {
		// Validate pattern complexity before compiling
		if err := validateRegexComplexity(pattern); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern '%s': %w", pattern, err)
		}
		return re, nil
	})
}

// validateRegexComplexity rejects patterns that suggest heavy backtracking or
// oversized programs. Rules come from configuration, so patterns are bounded
// before they reach the compiler.
func validateRegexComplexity(pattern string) error {
	if len(pattern) > 500 {
		return fmt.Errorf("regex pattern too long (max 500 chars): %d chars", len(pattern))
	}

	dangerousFragments := []string{
		`(\w+)*\w`,
		`(\w*)+`,
		`(a+)+`,
		`([a-zA-Z]+)*`,
		`(\d+)*\d`,
		`(.*)*`,
		`(.+)+`,
		`(\s+)*\s`,
		`([^,]+)*[^,]`,
	}
	for _, fragment := range dangerousFragments {
		if strings.Contains(pattern, fragment) {
			return fmt.Errorf("regex pattern contains nested quantifiers that may cause exponential backtracking")
		}
	}

	if excessiveRepetition(pattern) {
		return fmt.Errorf("regex pattern contains excessive repetition count (>= 1000)")
	}

	if strings.Count(pattern, "(") > 20 {
		return fmt.Errorf("regex pattern has too many capture groups (max 20)")
	}

	nestLevel, maxNest := 0, 0
	for _, ch := range pattern {
		switch ch {
		case '(':
			nestLevel++
			maxNest = max(maxNest, nestLevel)
		case ')':
			nestLevel--
		}
	}
	if maxNest > 5 {
		return fmt.Errorf("regex pattern has excessive nesting depth (max 5 levels)")
	}

	return nil
}

// excessiveRepetition reports a {n or {n,m repeat whose first bound has four
// or more digits.
func excessiveRepetition(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '{' {
			continue
		}
		digits := 0
		for j := i + 1; j < len(pattern) && pattern[j] >= '0' && pattern[j] <= '9'; j++ {
			digits++
		}
		if digits >= 4 {
			return true
		}
	}
	return false
}
