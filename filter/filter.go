package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dhcgn/inbox-triage/model"
)

// ErrConflictingModes is returned when include and exclude patterns are combined.
var ErrConflictingModes = errors.New("include and exclude filters are mutually exclusive")

// Options captures the filtering configuration.
type Options struct {
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

// Active reports whether any pattern is configured.
func (o Options) Active() bool {
	return len(o.IncludeHeader) > 0 || len(o.IncludeBody) > 0 || len(o.ExcludeHeader) > 0 || len(o.ExcludeBody) > 0
}

type field int

const (
	fieldHeader field = iota
	fieldBody
)

func (f field) String() string {
	if f == fieldHeader {
		return "header"
	}
	return "body"
}

type rule struct {
	field field
	re    *regexp.Regexp
}

func (r rule) String() string {
	return r.field.String() + " /" + r.re.String() + "/"
}

func (r rule) match(header string, msg model.Message) bool {
	if r.field == fieldHeader {
		return r.re.MatchString(header)
	}
	return r.re.MatchString(msg.Body)
}

// Filter selects messages by regex. Header rules see "Subject: <subject>\nFrom: <sender>",
// body rules see the joined body. With include rules a message must match one of them;
// with exclude rules it must match none.
type Filter struct {
	rules   []rule
	include bool
}

// New compiles the configured patterns. Blank patterns are ignored.
func New(opts Options) (*Filter, error) {
	var include, exclude []rule
	groups := []struct {
		name     string
		field    field
		patterns []string
		into     *[]rule
	}{
		{"include-header", fieldHeader, opts.IncludeHeader, &include},
		{"include-body", fieldBody, opts.IncludeBody, &include},
		{"exclude-header", fieldHeader, opts.ExcludeHeader, &exclude},
		{"exclude-body", fieldBody, opts.ExcludeBody, &exclude},
	}
	for _, g := range groups {
		for _, pattern := range g.patterns {
			pattern = strings.TrimSpace(pattern)
			if pattern == "" {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("compile %s pattern %q: %w", g.name, pattern, err)
			}
			*g.into = append(*g.into, rule{field: g.field, re: re})
		}
	}

	if len(include) > 0 && len(exclude) > 0 {
		return nil, ErrConflictingModes
	}
	if len(include) > 0 {
		return &Filter{rules: include, include: true}, nil
	}
	return &Filter{rules: exclude}, nil
}

// Allows returns true if the message passes the filter criteria. A nil Filter allows
// everything.
func (f *Filter) Allows(msg model.Message) bool {
	ok, _ := f.Decide(msg)
	return ok
}

// Decide is Allows plus the reason a message was dropped; reason is empty when the
// message passes.
func (f *Filter) Decide(msg model.Message) (bool, string) {
	if f == nil || len(f.rules) == 0 {
		return true, ""
	}

	header := HeaderText(msg)
	for _, r := range f.rules {
		if !r.match(header, msg) {
			continue
		}
		if f.include {
			return true, ""
		}
		return false, "matched exclude " + r.String()
	}

	if f.include {
		return false, "no include pattern matched"
	}
	return true, ""
}

// HeaderText renders the recognised headers of a message the way they appear in the
// input, for header pattern matching.
func HeaderText(msg model.Message) string {
	return "Subject: " + msg.Subject + "\nFrom: " + msg.Sender
}
