package rules

import (
	"sort"
	"strings"
)

// keywordRule maps one lowercase keyword to the tags it implies.
type keywordRule struct {
	Keyword string
	Tags    []string
}

// KeywordMatcher is an ordered keyword table. Matching is plain substring
// containment on lowercased text, so a keyword inside a longer word matches.
type KeywordMatcher struct {
	rules []keywordRule
}

// NewKeywordMatcher normalizes keywords to lowercase, merges duplicates and
// orders the table by keyword.
func NewKeywordMatcher(table map[string][]string) *KeywordMatcher {
	merged := make(map[string]TagSet, len(table))
	for kw, tags := range table {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		set, ok := merged[k]
		if !ok {
			set = TagSet{}
			merged[k] = set
		}
		for _, t := range tags {
			set.Add(strings.TrimSpace(t))
		}
	}

	m := &KeywordMatcher{rules: make([]keywordRule, 0, len(merged))}
	for k, set := range merged {
		m.rules = append(m.rules, keywordRule{Keyword: k, Tags: set.Sorted()})
	}
	sort.Slice(m.rules, func(i, j int) bool { return m.rules[i].Keyword < m.rules[j].Keyword })
	return m
}

// Match returns the union of tags for every keyword contained in text.
// text is lowercased before matching.
func (m *KeywordMatcher) Match(text string) TagSet {
	out := TagSet{}
	if m == nil || text == "" {
		return out
	}
	hay := strings.ToLower(text)
	for _, r := range m.rules {
		if strings.Contains(hay, r.Keyword) {
			for _, t := range r.Tags {
				out.Add(t)
			}
		}
	}
	return out
}

// Len is the number of distinct keywords.
func (m *KeywordMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}
