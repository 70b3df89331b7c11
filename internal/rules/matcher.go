// Package rules decides whether a token name satisfies a memepad's
// acquisition rules. Pure functions, no I/O.
package rules

import (
	"strings"

	"memepad-engine/internal/domain"
)

// Matches reports whether tokenName satisfies any rule in order.
// Exact rules compare case-insensitively for full equality; substring
// rules for containment. An empty rule list never matches.
func Matches(tokenName string, rules []domain.Rule) bool {
	lower := strings.ToLower(tokenName)
	for _, rule := range rules {
		pattern := strings.ToLower(rule.Pattern)
		if rule.ExactMatch {
			if lower == pattern {
				return true
			}
		} else if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
