package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"
)

type Stage string

const (
	StageSource   Stage = "source"
	StageAnnotate Stage = "annotate"
	StageOutput   Stage = "output"
)

type EventType string

const (
	EventTypeScanned   EventType = "scanned"
	EventTypeSkipped   EventType = "skipped"
	EventTypeFiltered  EventType = "filtered"
	EventTypeAnnotated EventType = "annotated"
	EventTypeError     EventType = "error"
)

type Event struct {
	Stage     Stage
	Type      EventType
	MessageID string
	Err       error
	Priority  string
	Category  string
}

type Summary struct {
	Scanned        int
	Skipped        int
	Filtered       int
	Annotated      int
	Errors         int
	LastError      error
	LastErrorStage Stage
	Priorities     map[string]int
	Categories     map[string]int
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"skipped", s.Skipped,
		"filtered", s.Filtered,
		"annotated", s.Annotated,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error(), "lastErrorStage", s.LastErrorStage)
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{summary: Summary{
		Priorities: make(map[string]int),
		Categories: make(map[string]int),
	}}
}

func (c *Collector) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.Apply(evt)
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	summary.Priorities = maps.Clone(c.summary.Priorities)
	summary.Categories = maps.Clone(c.summary.Categories)
	c.mu.Unlock()
	return summary
}

func (c *Collector) Apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeSkipped:
		c.summary.Skipped++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
			c.summary.LastErrorStage = evt.Stage
		}
	case EventTypeFiltered:
		c.summary.Filtered++
	case EventTypeAnnotated:
		c.summary.Annotated++
		if evt.Priority != "" {
			c.summary.Priorities[evt.Priority]++
		}
		if evt.Category != "" {
			c.summary.Categories[evt.Category]++
		}
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
			c.summary.LastErrorStage = evt.Stage
		}
	}
}

type EventStream interface {
	SubscribeStats(name string, fn func(context.Context, <-chan Event) error)
}

type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(stream EventStream, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		collector: NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
	stream.SubscribeStats("stats-reporter", reporter.consume)
	return reporter
}

func (r *Reporter) consume(ctx context.Context, events <-chan Event) error {
	r.collector.Run(ctx, events)
	summary := r.collector.Snapshot()
	attrs := append(summary.LogAttrs(), "duration", time.Since(r.started))
	if ctx.Err() != nil {
		if r.logger != nil {
			r.logger.Debug("stats collection stopped", append(attrs, "err", ctx.Err())...)
		}
		return ctx.Err()
	}
	if r.logger != nil {
		r.logger.Info("stats summary", attrs...)
	}
	return nil
}

// Pair is one tallied value.
type Pair struct {
	Key   string
	Value int
}

// Top returns the entries of m ordered by count descending, then key, truncated to
// limit. A limit below 1 returns everything.
func Top(m map[string]int, limit int) []Pair {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value > pairs[j].Value
		}
		return pairs[i].Key < pairs[j].Key
	})

	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// PrettyPrintTop prints the top N most frequent items in a map.
func PrettyPrintTop(w io.Writer, m map[string]int, limit int) {
	for i, p := range Top(m, limit) {
		fmt.Fprintf(w, "%d. %s (%d)\n", i+1, p.Key, p.Value)
	}
}
