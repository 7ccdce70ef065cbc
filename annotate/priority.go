package annotate

import (
	"strings"

	"github.com/dhcgn/inbox-triage/model"
)

var (
	highPriorityKeywords   = newKeywordSet("urgent", "asap", "meeting", "invoice", "payment", "deadline")
	mediumPriorityKeywords = newKeywordSet("reply", "question", "help", "request")
)

var priorityRules = []struct {
	keywords keywordSet
	priority model.Priority
}{
	{highPriorityKeywords, model.PriorityHigh},
	{mediumPriorityKeywords, model.PriorityMedium},
}

// ClassifyPriority maps a message to High, Medium or Low by keyword occurrence in the
// subject and body. High wins over Medium.
func ClassifyPriority(msg model.Message) model.Priority {
	text := strings.ToLower(msg.Subject + " " + msg.Body)
	for _, rule := range priorityRules {
		if rule.keywords.matchedBy(text) {
			return rule.priority
		}
	}
	return model.PriorityLow
}
