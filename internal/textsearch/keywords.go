package textsearch

import "strings"

const termSeparator = "&"

// ParseKeywords lowercases raw, splits it on "&" and drops blank terms.
func ParseKeywords(raw string) []string {
	parts := strings.Split(strings.ToLower(raw), termSeparator)
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		term := strings.TrimSpace(part)
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// Matcher tests folded field values against a set of AND-combined terms.
type Matcher struct {
	terms []string
}

// NewMatcher builds a matcher from a raw keyword string.
func NewMatcher(raw string) Matcher {
	terms := ParseKeywords(raw)
	folded := make([]string, 0, len(terms))
	for _, term := range terms {
		if value := Fold(term); value != "" {
			folded = append(folded, value)
		}
	}
	return Matcher{terms: folded}
}

// Empty reports whether the matcher has no usable terms.
func (m Matcher) Empty() bool {
	return len(m.terms) == 0
}

// Terms returns the folded terms.
func (m Matcher) Terms() []string {
	return append([]string(nil), m.terms...)
}

// Match reports whether every term occurs in at least one of the fields.
func (m Matcher) Match(fields ...string) bool {
	if m.Empty() {
		return true
	}
	folded := make([]string, len(fields))
	for index, field := range fields {
		folded[index] = Fold(field)
	}
	for _, term := range m.terms {
		if !containsAny(folded, term) {
			return false
		}
	}
	return true
}

func containsAny(fields []string, term string) bool {
	for _, field := range fields {
		if strings.Contains(field, term) {
			return true
		}
	}
	return false
}
