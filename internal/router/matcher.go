package router

import "strings"

// PathMatcher is the interface for path matching.
type PathMatcher interface {
	Match(path string) bool
	Type() string
	Pattern() string
}

// PrefixMatcher matches paths that start with a literal prefix. There is
// no segment boundary check: "/api/users" matches "/api/usersearch".
type PrefixMatcher struct {
	prefix string
}

// NewPrefixMatcher creates a new prefix path matcher.
func NewPrefixMatcher(prefix string) *PrefixMatcher {
	return &PrefixMatcher{prefix: prefix}
}

// Match checks if the path starts with the prefix.
func (m *PrefixMatcher) Match(path string) bool {
	return strings.HasPrefix(path, m.prefix)
}

// Type returns the matcher type.
func (m *PrefixMatcher) Type() string { return "prefix" }

// Pattern returns the pattern.
func (m *PrefixMatcher) Pattern() string { return m.prefix }

// KeywordMatcher matches paths containing a substring anywhere.
type KeywordMatcher struct {
	keyword string
}

// NewKeywordMatcher creates a new substring matcher.
func NewKeywordMatcher(keyword string) *KeywordMatcher {
	return &KeywordMatcher{keyword: keyword}
}

// Match checks if the path contains the keyword.
func (m *KeywordMatcher) Match(path string) bool {
	return strings.Contains(path, m.keyword)
}

// Type returns the matcher type.
func (m *KeywordMatcher) Type() string { return "keyword" }

// Pattern returns the pattern.
func (m *KeywordMatcher) Pattern() string { return m.keyword }
