// Package source enumerates raw message blobs for the triage pipeline.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/dhcgn/inbox-triage/model"
)

// ErrUnreadable marks an item that could not be opened or decoded. Such items are
// skipped by the pipeline.
var ErrUnreadable = errors.New("unreadable input")

// Source streams blobs in enumeration order. Per-item failures are sent as envelopes
// carrying an error; a returned error aborts the run.
type Source interface {
	Stream(ctx context.Context, out chan<- model.Envelope) error
}

// Unreadable builds the envelope for an item that failed to load.
func Unreadable(id string, err error) model.Envelope {
	return model.Envelope{
		Blob: model.Blob{ID: id},
		Err:  fmt.Errorf("%s: %w: %w", id, ErrUnreadable, err),
	}
}

// Emit sends env unless ctx is done.
func Emit(ctx context.Context, out chan<- model.Envelope, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- env:
		return nil
	}
}

// Collect drains src into a slice. It is meant for small batches and tests.
func Collect(ctx context.Context, src Source) ([]model.Envelope, error) {
	out := make(chan model.Envelope, 16)
	done := make(chan error, 1)
	go func() {
		done <- src.Stream(ctx, out)
		close(out)
	}()

	var envelopes []model.Envelope
	for env := range out {
		envelopes = append(envelopes, env)
	}
	return envelopes, <-done
}

// Counter is implemented by sources that can size their input up front.
type Counter interface {
	Count() (int, error)
}
