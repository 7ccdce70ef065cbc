// Package parser turns raw text blobs into structured messages.
//
// A blob may carry optional "Subject:" and "From:" header lines anywhere in its
// text; every other line is part of the body.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dhcgn/inbox-triage/model"
)

// ErrNotText reports a blob that cannot be decoded as UTF-8 text.
var ErrNotText = errors.New("input is not valid utf-8 text")

const (
	subjectPrefix = "subject:"
	fromPrefix    = "from:"
)

// Parse converts a blob into a Message. The only failure is a blob that is not text;
// callers skip such blobs instead of aborting the batch. A blob with decoded headers
// keeps them and every line is body, so quoted "From:" lines cannot replace them.
func Parse(blob model.Blob) (model.Message, error) {
	msg := model.Message{ID: blob.ID}
	body := make([]string, 0, len(blob.Lines))

	if blob.Header != nil {
		if !utf8.ValidString(blob.Header.Subject) || !utf8.ValidString(blob.Header.Sender) {
			return model.Message{}, fmt.Errorf("%s header: %w", blob.ID, ErrNotText)
		}
		msg.Subject = strings.TrimSpace(blob.Header.Subject)
		msg.Sender = strings.TrimSpace(blob.Header.Sender)
	}

	for idx, line := range blob.Lines {
		if !utf8.ValidString(line) {
			return model.Message{}, fmt.Errorf("%s line %d: %w", blob.ID, idx+1, ErrNotText)
		}

		lower := strings.ToLower(strings.TrimSpace(line))
		switch {
		case blob.Header != nil:
			body = append(body, strings.TrimRightFunc(line, unicode.IsSpace))
		case strings.HasPrefix(lower, subjectPrefix):
			msg.Subject = headerValue(line)
		case strings.HasPrefix(lower, fromPrefix):
			msg.Sender = headerValue(line)
		default:
			body = append(body, strings.TrimRightFunc(line, unicode.IsSpace))
		}
	}

	msg.Body = strings.TrimSpace(strings.Join(body, " "))
	return msg, nil
}

// ParseText splits text into lines and parses it.
func ParseText(id, text string) (model.Message, error) {
	return Parse(model.Blob{ID: id, Lines: SplitLines(text)})
}

// SplitLines breaks text on LF, CRLF or a lone CR. A trailing line break does not
// produce an extra empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = lineBreaks.Replace(text)
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// headerValue returns the trimmed text after the first colon. A header without a
// value yields an empty string.
func headerValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}
