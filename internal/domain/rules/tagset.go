package rules

import (
	"sort"

	json "github.com/goccy/go-json"
)

// TagSet is an unordered set of tags.
type TagSet map[string]struct{}

// NewTagSet builds a set from tags, skipping empty strings.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts tag unless it is empty.
func (s TagSet) Add(tag string) {
	if tag != "" {
		s[tag] = struct{}{}
	}
}

// Union adds every tag of other to s.
func (s TagSet) Union(other TagSet) {
	for t := range other {
		s[t] = struct{}{}
	}
}

// Has reports membership.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Len returns the number of tags.
func (s TagSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s TagSet) Clone() TagSet {
	c := make(TagSet, len(s))
	c.Union(s)
	return c
}

// Sorted returns the tags in ascending order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the set as a sorted array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}
