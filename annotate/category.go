package annotate

import (
	"strings"

	"github.com/dhcgn/inbox-triage/model"
)

type senderPart int

const (
	fullAddress senderPart = iota
	domainPart
)

// Newsletter keywords look at the whole address, the others only at the domain.
var categoryRules = []struct {
	part     senderPart
	keywords keywordSet
	category model.Category
}{
	{fullAddress, newKeywordSet("newsletter", "news", "update", "mailing"), model.CategoryNewsletter},
	{domainPart, newKeywordSet("promo", "marketing", "offers"), model.CategoryPromotions},
	{domainPart, newKeywordSet("social", "facebook", "linkedin", "twitter"), model.CategorySocial},
}

// Categorize assigns a category from the sender address.
func Categorize(msg model.Message) model.Category {
	address := strings.ToLower(msg.Sender)
	domain := senderDomain(address)
	for _, rule := range categoryRules {
		text := address
		if rule.part == domainPart {
			text = domain
		}
		if rule.keywords.matchedBy(text) {
			return rule.category
		}
	}
	return model.CategoryGeneral
}

// senderDomain returns the text after the last '@', or the whole address when there is
// none. For "Name <user@host>" the trailing '>' is kept.
func senderDomain(address string) string {
	if idx := strings.LastIndex(address, "@"); idx >= 0 {
		return address[idx+1:]
	}
	return address
}
