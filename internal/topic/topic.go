// Package topic implements subscription pattern matching for dot-segmented
// message types.
//
// A pattern is either an exact topic ("system.status.request") or a literal
// prefix followed by one trailing wildcard segment ("user.action.*"). The
// wildcard means "prefix plus at least one more segment": "user.action.*"
// matches "user.action.login" but not "user.action" and not
// "user.actionx.foo". No other grammar is supported.
package topic

import "strings"

const wildcardSuffix = ".*"

// Match reports whether messageType satisfies pattern.
func Match(pattern, messageType string) bool {
	if strings.HasSuffix(pattern, wildcardSuffix) {
		prefix := strings.TrimSuffix(pattern, wildcardSuffix)
		return strings.HasPrefix(messageType, prefix+".")
	}
	return pattern == messageType
}

// IsWildcard reports whether pattern ends in a trailing wildcard segment.
func IsWildcard(pattern string) bool {
	return strings.HasSuffix(pattern, wildcardSuffix)
}
