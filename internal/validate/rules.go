package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule is a single check applied to a text value. Check returns the violation
// message, or "" when the value passes.
type Rule interface {
	Check(value string) string
}

// RuleFunc adapts a plain function to Rule.
type RuleFunc func(value string) string

func (f RuleFunc) Check(value string) string { return f(value) }

// Required fails on empty or whitespace-only values.
func Required(msg string) Rule {
	return RuleFunc(func(value string) string {
		if strings.TrimSpace(value) == "" {
			return msg
		}
		return ""
	})
}

// MinLength fails when a non-empty value has fewer than n characters.
// Length is counted in runes.
func MinLength(n int, msg string) Rule {
	return RuleFunc(func(value string) string {
		if value != "" && utf8.RuneCountInString(value) < n {
			return msg
		}
		return ""
	})
}

// MaxLength fails when a value has more than n characters.
func MaxLength(n int, msg string) Rule {
	return RuleFunc(func(value string) string {
		if utf8.RuneCountInString(value) > n {
			return msg
		}
		return ""
	})
}

// Pattern fails when a non-empty value does not match re. The expression
// should be anchored; Pattern does not add anchors.
func Pattern(re *regexp.Regexp, msg string) Rule {
	return RuleFunc(func(value string) string {
		if value != "" && !re.MatchString(value) {
			return msg
		}
		return ""
	})
}

// Validate applies every rule to value and returns all resulting messages in
// rule order. A nil result means the value is valid.
func Validate(value string, rules []Rule) []string {
	var violations []string
	for _, r := range rules {
		if msg := r.Check(value); msg != "" {
			violations = append(violations, msg)
		}
	}
	return violations
}
