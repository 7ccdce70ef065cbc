package annotate

import (
	"strings"

	"github.com/dhcgn/inbox-triage/model"
)

// Reply templates. Each one is a greeting, a short body and a closing line.
const (
	MeetingReply = "Hi,\n\n" +
		"Thank you for reaching out about scheduling a meeting. " +
		"I'm reviewing my calendar and will propose some available times shortly.\n\n" +
		"Best regards,"

	InvoiceReply = "Hello,\n\n" +
		"I have received your message regarding the invoice. " +
		"I'll review the details and follow up with you soon.\n\n" +
		"Kind regards,"

	GratitudeReply = "Hi,\n\n" +
		"You're very welcome! Let me know if there's anything else you need.\n\n" +
		"Best,"

	DefaultReply = "Hello,\n\n" +
		"Thank you for your email. I've received your message and will get back to you soon.\n\n" +
		"Best regards,"
)

type replyTrigger struct {
	subject keywordSet
	body    keywordSet
	reply   string
}

// Evaluated in order; the first trigger with a hit in subject or body wins.
var replyTriggers = []replyTrigger{
	{subject: newKeywordSet("meeting"), body: newKeywordSet("meeting", "schedule"), reply: MeetingReply},
	{subject: newKeywordSet("invoice"), body: newKeywordSet("invoice", "payment"), reply: InvoiceReply},
	{body: newKeywordSet("thank"), reply: GratitudeReply},
}

// DraftReply selects a canned reply for the message. It never returns an empty string.
func DraftReply(msg model.Message) string {
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(msg.Body)
	for _, trigger := range replyTriggers {
		if trigger.body.matchedBy(body) || trigger.subject.matchedBy(subject) {
			return trigger.reply
		}
	}
	return DefaultReply
}
