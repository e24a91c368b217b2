package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeywordSet is a set of normalized keywords.
type KeywordSet map[string]struct{}

func (k KeywordSet) Has(keyword string) bool {
	_, ok := k[keyword]
	return ok
}

func (k KeywordSet) Len() int { return len(k) }

// Intersects reports whether the sets share at least one keyword.
func (k KeywordSet) Intersects(other KeywordSet) bool {
	small, large := k, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for keyword := range small {
		if large.Has(keyword) {
			return true
		}
	}
	return false
}

// IntersectionSize counts keywords present in both sets.
func (k KeywordSet) IntersectionSize(other KeywordSet) int {
	n := 0
	for keyword := range k {
		if other.Has(keyword) {
			n++
		}
	}
	return n
}

// Union returns a new set holding keywords of both sets.
func (k KeywordSet) Union(other KeywordSet) KeywordSet {
	out := make(KeywordSet, len(k)+len(other))
	for keyword := range k {
		out[keyword] = struct{}{}
	}
	for keyword := range other {
		out[keyword] = struct{}{}
	}
	return out
}

// Normalize lowercases and trims s, then drops every rune that is neither a
// word character nor whitespace. Trimming happens before the drop, so
// "C++" becomes "c" and "- go" keeps its inner space.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isDelimiter(r rune) bool {
	switch r {
	case ',', ';', '/', '\n':
		return true
	}
	return false
}

// BuildKeywordSet splits every item on , ; / and newlines. Each normalized
// fragment of two or more runes is kept, together with each of its words
// longer than two runes.
func BuildKeywordSet(items ...[]string) KeywordSet {
	set := make(KeywordSet)
	for _, list := range items {
		for _, item := range list {
			addKeywords(set, item)
		}
	}
	return set
}

func addKeywords(set KeywordSet, item string) {
	for _, fragment := range splitFragments(item) {
		normalized := Normalize(fragment)
		if utf8.RuneCountInString(normalized) < 2 {
			continue
		}
		set[normalized] = struct{}{}
		for _, word := range strings.Fields(normalized) {
			if utf8.RuneCountInString(word) > 2 {
				set[word] = struct{}{}
			}
		}
	}
}

// splitFragments keeps empty fragments between adjacent delimiters; they are
// dropped by the length check.
func splitFragments(item string) []string {
	var fragments []string
	start := 0
	for i, r := range item {
		if isDelimiter(r) {
			fragments = append(fragments, item[start:i])
			start = i + utf8.RuneLen(r)
		}
	}
	return append(fragments, item[start:])
}

// Coverage returns the share of requirement items that have at least one
// keyword in common with candidate. An empty list is fully covered.
func Coverage(candidate KeywordSet, requirements []string) float64 {
	if len(requirements) == 0 {
		return 1.0
	}

	matched := 0
	for _, item := range requirements {
		if covered(candidate, item) {
			matched++
		}
	}
	return float64(matched) / float64(len(requirements))
}

func covered(candidate KeywordSet, item string) bool {
	return BuildKeywordSet([]string{item}).Intersects(candidate)
}
