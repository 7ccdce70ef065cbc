package annotate

import (
	"strings"

	"github.com/dhcgn/inbox-triage/model"
)

// DefaultMaxSentences is the summary length used when none is configured.
const DefaultMaxSentences = 2

// Summarize returns the first maxSentences sentences of the body joined by single
// spaces. maxSentences below 1 is treated as 1.
func Summarize(msg model.Message, maxSentences int) string {
	if maxSentences < 1 {
		maxSentences = 1
	}
	sentences := SplitSentences(msg.Body)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " ")
}

// SplitSentences cuts text after every '.', '!' or '?' that is followed by at least one
// space. The punctuation stays with its sentence and the spaces are dropped. This is a
// purely syntactic split: "Mr. Smith" and "3. 5" are two sentences each.
func SplitSentences(text string) []string {
	var sentences []string
	add := func(fragment string) {
		if fragment = strings.TrimSpace(fragment); fragment != "" {
			sentences = append(sentences, fragment)
		}
	}

	start := 0
	for i := 0; i < len(text); i++ {
		if !isSentenceEnd(text[i]) || i+1 >= len(text) || text[i+1] != ' ' {
			continue
		}
		add(text[start : i+1])
		j := i + 1
		for j < len(text) && text[j] == ' ' {
			j++
		}
		start = j
		i = j - 1
	}
	add(text[start:])

	return sentences
}

func isSentenceEnd(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}
