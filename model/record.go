package model

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

type Category string

const (
	CategoryNewsletter Category = "Newsletter"
	CategoryPromotions Category = "Promotions"
	CategorySocial     Category = "Social"
	CategoryGeneral    Category = "General"
)

// Record is the annotation produced for a single Message.
type Record struct {
	ID         string   `json:"filename" yaml:"filename"`
	Subject    string   `json:"subject" yaml:"subject"`
	Sender     string   `json:"sender" yaml:"sender"`
	Priority   Priority `json:"priority" yaml:"priority"`
	Summary    string   `json:"summary" yaml:"summary"`
	DraftReply string   `json:"draft_reply" yaml:"draft_reply"`
	Category   Category `json:"category" yaml:"category"`
}
