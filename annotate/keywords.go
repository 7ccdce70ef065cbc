package annotate

import "strings"

// keywordSet is an immutable list of lowercase keywords matched as substrings.
type keywordSet []string

func newKeywordSet(words ...string) keywordSet {
	set := make(keywordSet, len(words))
	for i, w := range words {
		set[i] = strings.ToLower(w)
	}
	return set
}

// matchedBy reports whether any keyword occurs anywhere in text. text must already be
// lowercase.
func (k keywordSet) matchedBy(text string) bool {
	for _, word := range k {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
