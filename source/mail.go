package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/dhcgn/inbox-triage/model"
	"github.com/dhcgn/inbox-triage/parser"
)

// DecodeMail reads an RFC 5322 message into a blob whose Header comes from the
// message headers and whose Lines are the decoded text/plain body.
func DecodeMail(id string, r io.Reader) (model.Blob, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return model.Blob{}, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}
	from := senderText(mr.Header)

	body, err := plainTextBody(mr)
	if err != nil {
		return model.Blob{}, err
	}

	return model.Blob{
		ID:     id,
		Lines:  parser.SplitLines(body),
		Header: &model.Header{Subject: subject, Sender: from},
	}, nil
}

func senderText(h mail.Header) string {
	addrs, err := h.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(h.Get("From"))
	}
	addr := addrs[0]
	if addr.Name == "" {
		return addr.Address
	}
	return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
}

func plainTextBody(mr *mail.Reader) (string, error) {
	var buf bytes.Buffer
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("read message part: %w", err)
		}
		if part == nil {
			continue
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.HasPrefix(contentType, "text/plain") {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("read message body: %w", err)
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.String(), nil
}
