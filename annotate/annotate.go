// Package annotate derives priority, summary, draft reply and category for parsed
// messages. Every stage is a pure function of a single Message.
package annotate

import (
	"github.com/dhcgn/inbox-triage/model"
	"github.com/dhcgn/inbox-triage/parser"
)

// Options tunes the annotation stages.
type Options struct {
	MaxSentences int
}

func (o Options) maxSentences() int {
	if o.MaxSentences < 1 {
		return DefaultMaxSentences
	}
	return o.MaxSentences
}

// Message runs all stages over msg and assembles its record.
func Message(msg model.Message, opts Options) model.Record {
	return model.Record{
		ID:         msg.ID,
		Subject:    msg.Subject,
		Sender:     msg.Sender,
		Priority:   ClassifyPriority(msg),
		Summary:    Summarize(msg, opts.maxSentences()),
		DraftReply: DraftReply(msg),
		Category:   Categorize(msg),
	}
}

// Skip describes an input that produced no record.
type Skip struct {
	ID  string
	Err error
}

// Result is the outcome of a batch: records in input order plus the skipped inputs.
type Result struct {
	Records []model.Record
	Skipped []Skip
}

// Empty reports whether the batch produced no records.
func (r Result) Empty() bool {
	return len(r.Records) == 0
}

// Batch parses and annotates envelopes in order. Envelopes carrying a read error and
// blobs that fail to parse are collected as skips.
func Batch(envelopes []model.Envelope, opts Options) Result {
	res := Result{Records: make([]model.Record, 0, len(envelopes))}
	for _, env := range envelopes {
		if env.Err != nil {
			res.Skipped = append(res.Skipped, Skip{ID: env.Blob.ID, Err: env.Err})
			continue
		}
		msg, err := parser.Parse(env.Blob)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{ID: env.Blob.ID, Err: err})
			continue
		}
		res.Records = append(res.Records, Message(msg, opts))
	}
	return res
}
