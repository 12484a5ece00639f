package common

import (
	"fmt"
	"strings"
)

// Pattern is a parsed wildmat-style group pattern: comma-separated items,
// each optionally negated with a leading '!', with '*' matching any run and
// '?' one character. A group matches iff some item's polarity matches its
// glob; items are evaluated in order and the first glob hit decides.
type Pattern struct {
	items []patternItem
}

type patternItem struct {
	glob    string
	negated bool
}

// ParsePattern validates and compiles a pattern string.
func ParsePattern(s string) (*Pattern, error) {
	if s == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	p := &Pattern{}
	for _, item := range strings.Split(s, ",") {
		negated := strings.HasPrefix(item, "!")
		glob := strings.TrimPrefix(item, "!")
		if glob == "" {
			return nil, fmt.Errorf("empty pattern item in %q", s)
		}
		p.items = append(p.items, patternItem{glob: glob, negated: negated})
	}
	return p, nil
}

// Match reports whether the group name matches the pattern.
func (p *Pattern) Match(group string) bool {
	for _, item := range p.items {
		if matchWildcard(group, item.glob) {
			return !item.negated
		}
	}
	return false
}

// matchWildcard performs glob matching with * (any run) and ? (one char).
func matchWildcard(text, pattern string) bool {
	return matchWildcardRecursive(text, pattern, 0, 0)
}

func matchWildcardRecursive(text, pattern string, textIdx, patternIdx int) bool {
	if patternIdx == len(pattern) {
		return textIdx == len(text)
	}

	if pattern[patternIdx] == '*' {
		for i := textIdx; i <= len(text); i++ {
			if matchWildcardRecursive(text, pattern, i, patternIdx+1) {
				return true
			}
		}
		return false
	}

	if textIdx == len(text) {
		return false
	}

	if pattern[patternIdx] == '?' || pattern[patternIdx] == text[textIdx] {
		return matchWildcardRecursive(text, pattern, textIdx+1, patternIdx+1)
	}

	return false
}
