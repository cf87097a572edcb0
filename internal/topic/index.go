package topic

import "strings"

// Index maps subscription patterns to subscriber keys so a lookup does not
// scan every (subscriber, pattern) pair. Exact patterns live in one bucket
// map; wildcard patterns are bucketed by their literal prefix, and a lookup
// walks only the dot-delimited ancestors of the message type.
//
// Index is not safe for concurrent use; the registry guards it with its own
// lock.
type Index struct {
	exact    map[string]map[string]struct{}
	wildcard map[string]map[string]struct{} // keyed by prefix without ".*"
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		exact:    make(map[string]map[string]struct{}),
		wildcard: make(map[string]map[string]struct{}),
	}
}

func (ix *Index) bucket(pattern string) (map[string]map[string]struct{}, string) {
	if IsWildcard(pattern) {
		return ix.wildcard, strings.TrimSuffix(pattern, wildcardSuffix)
	}
	return ix.exact, pattern
}

// Add records that key subscribes to pattern.
func (ix *Index) Add(pattern, key string) {
	m, k := ix.bucket(pattern)
	if m[k] == nil {
		m[k] = make(map[string]struct{})
	}
	m[k][key] = struct{}{}
}

// Remove drops one (pattern, key) entry. Unknown entries are a no-op.
func (ix *Index) Remove(pattern, key string) {
	m, k := ix.bucket(pattern)
	if set, ok := m[k]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(m, k)
		}
	}
}

// Lookup returns the deduplicated keys whose subscriptions match messageType.
func (ix *Index) Lookup(messageType string) []string {
	seen := make(map[string]struct{})

	for key := range ix.exact[messageType] {
		seen[key] = struct{}{}
	}

	// Wildcards match strict ancestors only, so check every proper
	// dot-delimited prefix of the message type.
	for i, c := range messageType {
		if c != '.' {
			continue
		}
		for key := range ix.wildcard[messageType[:i]] {
			seen[key] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of distinct pattern buckets in the index.
func (ix *Index) Len() int {
	return len(ix.exact) + len(ix.wildcard)
}
