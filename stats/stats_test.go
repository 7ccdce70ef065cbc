package stats

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestCollectorRun(t *testing.T) {
	events := make(chan Event, 8)
	skipErr := errors.New("unreadable")
	events <- Event{Stage: StageSource, Type: EventTypeScanned, MessageID: "a"}
	events <- Event{Stage: StageSource, Type: EventTypeScanned, MessageID: "b"}
	events <- Event{Stage: StageSource, Type: EventTypeScanned, MessageID: "c"}
	events <- Event{Stage: StageAnnotate, Type: EventTypeAnnotated, MessageID: "a", Priority: "High", Category: "General"}
	events <- Event{Stage: StageAnnotate, Type: EventTypeAnnotated, MessageID: "b", Priority: "High", Category: "Social"}
	events <- Event{Stage: StageAnnotate, Type: EventTypeSkipped, MessageID: "c", Err: skipErr}
	events <- Event{Stage: StageAnnotate, Type: EventTypeFiltered, MessageID: "d"}
	close(events)

	c := NewCollector()
	c.Run(context.Background(), events)
	s := c.Snapshot()

	if s.Scanned != 3 || s.Annotated != 2 || s.Skipped != 1 || s.Filtered != 1 || s.Errors != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if !errors.Is(s.LastError, skipErr) {
		t.Errorf("LastError = %v, want %v", s.LastError, skipErr)
	}
	if s.Priorities["High"] != 2 {
		t.Errorf("Priorities[High] = %d, want 2", s.Priorities["High"])
	}
	if s.Categories["Social"] != 1 || s.Categories["General"] != 1 {
		t.Errorf("Categories = %v", s.Categories)
	}

	s.Priorities["High"] = 99
	if c.Snapshot().Priorities["High"] != 2 {
		t.Error("Snapshot must not share maps with the collector")
	}
}

func TestTop(t *testing.T) {
	m := map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}
	got := Top(m, 3)
	want := []Pair{{"c", 5}, {"a", 2}, {"b", 2}}
	if len(got) != len(want) {
		t.Fatalf("Top() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Top()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(Top(m, 0)) != 4 {
		t.Error("limit 0 should return all pairs")
	}
}

func TestPrettyPrintTop(t *testing.T) {
	var buf bytes.Buffer
	PrettyPrintTop(&buf, map[string]int{"High": 3, "Low": 1}, 10)
	want := "1. High (3)\n2. Low (1)\n"
	if buf.String() != want {
		t.Errorf("PrettyPrintTop() = %q, want %q", buf.String(), want)
	}
}

func TestCollectorCountsErrorsWithStage(t *testing.T) {
	writeErr := errors.New("disk full")
	c := NewCollector()
	c.Apply(Event{Stage: StageSource, Type: EventTypeSkipped, MessageID: "a", Err: errors.New("bad")})
	c.Apply(Event{Stage: StageOutput, Type: EventTypeError, MessageID: "b", Err: writeErr})

	s := c.Snapshot()
	if s.Errors != 1 || s.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if !errors.Is(s.LastError, writeErr) || s.LastErrorStage != StageOutput {
		t.Errorf("LastError = %v at %q", s.LastError, s.LastErrorStage)
	}
}
