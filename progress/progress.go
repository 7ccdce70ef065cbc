package progress

import (
	"context"
	"sync"

	"github.com/pterm/pterm"

	"github.com/dhcgn/inbox-triage/stats"
)

// Bar manages a progress bar for tracking message annotation.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool
}

// New creates a progress bar when enabled is true; otherwise every method is a no-op.
func New(total int, enabled bool) *Bar {
	bar := &Bar{
		total:   total,
		enabled: enabled && total > 0,
	}

	if bar.enabled {
		pb, err := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Annotating messages").
			Start()
		if err != nil {
			bar.enabled = false
			return bar
		}
		bar.pb = pb
	}

	return bar
}

// Update advances the bar for each scanned message and surfaces skips above it.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeScanned:
		b.pb.Increment()
		if evt.MessageID != "" {
			displayID := evt.MessageID
			if len(displayID) > 40 {
				displayID = displayID[:37] + "..."
			}
			b.pb.UpdateTitle("Annotating: " + displayID)
		}
	case stats.EventTypeSkipped:
		if evt.Err != nil {
			pterm.Warning.Printf("Skipped %s at %s: %v\n", evt.MessageID, evt.Stage, evt.Err)
		}
	case stats.EventTypeError:
		pterm.Error.Printf("%s stage failed: %v\n", evt.Stage, evt.Err)
	}
}

// Stop finalizes the progress bar.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	_, _ = b.pb.Stop()
}

// Subscriber is a stats subscriber that drives the bar until the stream ends.
func (b *Bar) Subscriber(ctx context.Context, events <-chan stats.Event) error {
	defer b.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			b.Update(evt)
		}
	}
}

// Attach subscribes the bar to stream when it is enabled.
func (b *Bar) Attach(stream stats.EventStream) {
	if b.enabled {
		stream.SubscribeStats("progress-bar", b.Subscriber)
	}
}

// PrintSummary renders the end-of-run statistics.
func PrintSummary(summary stats.Summary) {
	pterm.DefaultSection.Println("Summary")
	pterm.Info.Printf("Scanned: %d\n", summary.Scanned)
	pterm.Info.Printf("Annotated: %d\n", summary.Annotated)
	pterm.Info.Printf("Skipped (unreadable): %d\n", summary.Skipped)
	pterm.Info.Printf("Filtered: %d\n", summary.Filtered)
	if summary.Errors > 0 {
		pterm.Error.Printf("Errors: %d\n", summary.Errors)
	}
	for _, p := range stats.Top(summary.Priorities, 0) {
		pterm.Info.Printf("Priority %s: %d\n", p.Key, p.Value)
	}
	for _, p := range stats.Top(summary.Categories, 0) {
		pterm.Info.Printf("Category %s: %d\n", p.Key, p.Value)
	}
	if summary.LastError != nil {
		pterm.Warning.Printf("Last problem (%s stage): %v\n", summary.LastErrorStage, summary.LastError)
	}
}
