package model

// Blob is one raw input item handed over by a source before parsing.
// When Header is set the source has already decoded the headers and Lines hold
// only the body.
type Blob struct {
	ID     string
	Lines  []string
	Header *Header
}

// Header carries headers decoded from a structured mail message.
type Header struct {
	Subject string
	Sender  string
}

// Message is a parsed unit of text with subject, sender and body.
type Message struct {
	ID      string
	Subject string
	Sender  string
	Body    string
}

// Envelope wraps a raw blob alongside an optional error encountered while reading it.
type Envelope struct {
	Blob Blob
	Err  error
}
