package parser

import (
	"errors"
	"testing"

	"github.com/dhcgn/inbox-triage/model"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantSubject string
		wantSender  string
		wantBody    string
	}{
		{
			name:        "headers and body",
			text:        "Subject: Urgent Meeting\nFrom: boss@example.com\nPlease join the meeting tomorrow at 9am. Let me know if that works.",
			wantSubject: "Urgent Meeting",
			wantSender:  "boss@example.com",
			wantBody:    "Please join the meeting tomorrow at 9am. Let me know if that works.",
		},
		{
			name:     "no headers",
			text:     "Hi. Thanks for everything. See you soon.",
			wantBody: "Hi. Thanks for everything. See you soon.",
		},
		{
			name:        "case insensitive and indented headers",
			text:        "  SUBJECT:  Hello  \nfRoM:Alice <alice@example.com>\nbody",
			wantSubject: "Hello",
			wantSender:  "Alice <alice@example.com>",
			wantBody:    "body",
		},
		{
			name:        "last header wins",
			text:        "Subject: first\nSubject: second\nFrom: a@x.com\nFrom: b@x.com\n",
			wantSubject: "second",
			wantSender:  "b@x.com",
		},
		{
			name:        "header value keeps later colons",
			text:        "Subject: Re: status: done\nok",
			wantSubject: "Re: status: done",
			wantBody:    "ok",
		},
		{
			name:     "malformed header has empty value",
			text:     "Subject:\nFrom:   \nbody text",
			wantBody: "body text",
		},
		{
			name:     "body lines joined with single space",
			text:     "line one   \n  line two\r\nline three\n",
			wantBody: "line one   line two line three",
		},
		{
			name:     "blank lines are kept as empty body lines",
			text:     "\n\nfirst\n\nsecond\n\n",
			wantBody: "first  second",
		},
		{
			name: "empty blob",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseText("mail.txt", tt.text)
			if err != nil {
				t.Fatalf("ParseText() error = %v", err)
			}
			if msg.ID != "mail.txt" {
				t.Errorf("ID = %q, want %q", msg.ID, "mail.txt")
			}
			if msg.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", msg.Subject, tt.wantSubject)
			}
			if msg.Sender != tt.wantSender {
				t.Errorf("Sender = %q, want %q", msg.Sender, tt.wantSender)
			}
			if msg.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", msg.Body, tt.wantBody)
			}
		})
	}
}

func TestParseRejectsInvalidUTF8(t *testing.T) {
	blob := model.Blob{ID: "broken.txt", Lines: []string{"Subject: ok", "bad \xff\xfe bytes"}}
	_, err := Parse(blob)
	if !errors.Is(err, ErrNotText) {
		t.Fatalf("Parse() error = %v, want ErrNotText", err)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	blob := model.Blob{ID: "a", Lines: []string{"From: x@y.com", "Hello there.", "Subject: Hi"}}
	first, err := Parse(blob)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := Parse(blob)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if first != second {
		t.Errorf("Parse() not deterministic: %+v vs %+v", first, second)
	}
}

func TestParseClassicMacLineEndings(t *testing.T) {
	msg, err := ParseText("mac.txt", "Subject: Hi\rFrom: a@b.com\rFirst line.\rSecond line.\r")
	if err != nil {
		t.Fatalf("ParseText() error = %v", err)
	}
	if msg.Subject != "Hi" || msg.Sender != "a@b.com" || msg.Body != "First line. Second line." {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestParseDecodedHeaderKeepsQuotedLinesInBody(t *testing.T) {
	blob := model.Blob{
		ID:     "fwd.eml",
		Lines:  []string{"See below.", "From: other@example.org", "Subject: Hello  "},
		Header: &model.Header{Subject: " Invoice overdue ", Sender: "Boss <boss@example.com>"},
	}
	msg, err := Parse(blob)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if msg.Subject != "Invoice overdue" || msg.Sender != "Boss <boss@example.com>" {
		t.Errorf("headers replaced: %+v", msg)
	}
	if msg.Body != "See below. From: other@example.org Subject: Hello" {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\r\nb\r\n", []string{"a", "b"}},
		{"a\n\nb", []string{"a", "", "b"}},
		{"a\rb\r", []string{"a", "b"}},
		{"a\r\rb", []string{"a", "", "b"}},
		{"a\r\n\rb", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		got := SplitLines(tt.text)
		if len(got) != len(tt.want) {
			t.Fatalf("SplitLines(%q) = %q, want %q", tt.text, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitLines(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
			}
		}
	}
}
