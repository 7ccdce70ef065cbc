package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dhcgn/inbox-triage/annotate"
	"github.com/dhcgn/inbox-triage/config"
	"github.com/dhcgn/inbox-triage/filter"
	"github.com/dhcgn/inbox-triage/model"
	"github.com/dhcgn/inbox-triage/output"
	"github.com/dhcgn/inbox-triage/parser"
	"github.com/dhcgn/inbox-triage/source"
	"github.com/dhcgn/inbox-triage/stats"
)

// ErrEmptyBatch is returned by Start when the run finished cleanly but no input
// produced a record. No output is written in that case.
var ErrEmptyBatch = errors.New("no messages to annotate")

type StageFunc func(context.Context) error

// OpenFunc opens the output writer. It is called once, when the first record is
// ready, so an empty batch creates no output.
type OpenFunc func() (output.Writer, error)

// Result describes a finished run.
type Result struct {
	Written  int
	Summary  stats.Summary
	Duration time.Duration
}

// Empty reports whether the run produced no records.
func (r Result) Empty() bool {
	return r.Written == 0
}

type job struct {
	seq int
	env model.Envelope
}

type outcome struct {
	seq      int
	id       string
	record   model.Record
	err      error
	stage    stats.Stage
	filtered string
}

type Runner struct {
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	messages chan model.Envelope
	jobs     chan job
	outcomes chan outcome

	subMu       sync.Mutex
	subscribers []chan stats.Event
	collector   *stats.Collector

	filter  *filter.Filter
	opts    annotate.Options
	open    OpenFunc
	sink    output.Writer
	written int

	workWG  sync.WaitGroup
	statsWG sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeMailboxOnce sync.Once
	closeEventsOnce  sync.Once
	since            time.Time
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, open OpenFunc) (*Runner, error) {
	if open == nil {
		return nil, fmt.Errorf("output opener must not be nil")
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	f, err := filter.New(filter.Options{
		IncludeHeader: cfg.IncludeHeader,
		IncludeBody:   cfg.IncludeBody,
		ExcludeHeader: cfg.ExcludeHeader,
		ExcludeBody:   cfg.ExcludeBody,
	})
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Runner{
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		messages:  make(chan model.Envelope, 32),
		jobs:      make(chan job, 32),
		outcomes:  make(chan outcome, 32),
		collector: stats.NewCollector(),
		filter:    f,
		opts:      annotate.Options{MaxSentences: cfg.MaxSentences},
		open:      open,
	}

	// The run summary drains the stream even after a failure so error events are counted.
	r.SubscribeStats("collector", func(ctx context.Context, events <-chan stats.Event) error {
		r.collector.Run(context.WithoutCancel(ctx), events)
		return nil
	})
	r.AddStage("bridge", r.bridge)
	r.AddStage("annotate", func(ctx context.Context) error { return r.annotate(ctx, workers) })
	r.AddStage("collect", r.collect)
	return r, nil
}

func (r *Runner) closeMailbox() {
	r.closeMailboxOnce.Do(func() {
		close(r.messages)
	})
}

// AddSource registers src as the producer of the run's input.
func (r *Runner) AddSource(name string, src source.Source) {
	r.AddStage(name, func(ctx context.Context) error {
		defer r.closeMailbox()
		err := src.Stream(ctx, r.messages)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeError, Err: err})
		}
		return err
	})
}

// EmitEvent delivers evt to every stats subscriber.
func (r *Runner) EmitEvent(evt stats.Event) {
	r.subMu.Lock()
	subscribers := r.subscribers
	r.subMu.Unlock()

	for _, ch := range subscribers {
		select {
		case <-r.ctx.Done():
			return
		case ch <- evt:
		}
	}
}

// SubscribeStats runs fn with its own copy of the event stream. Subscribers must be
// registered before a source is added; earlier events are not replayed.
func (r *Runner) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	ch := make(chan stats.Event, 128)
	r.subMu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.subMu.Unlock()

	r.statsWG.Add(1)
	go func() {
		defer r.statsWG.Done()
		if err := fn(r.ctx, ch); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stats: %w", name, err))
		}
	}()
}

func (r *Runner) AddStage(name string, fn StageFunc) {
	r.workWG.Add(1)
	go func() {
		defer r.workWG.Done()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stage: %w", name, err))
		}
	}()
}

// Start waits for all stages, publishes or discards the output and returns the run
// result. A cancelled parent context surfaces as context.Canceled, a run without
// records as ErrEmptyBatch.
func (r *Runner) Start() (Result, error) {
	r.since = time.Now()

	r.workWG.Wait()
	r.closeEvents()
	r.statsWG.Wait()

	parentErr := r.ctx.Err()
	r.cancel()

	err := r.err
	if err == nil && parentErr != nil {
		err = parentErr
	}
	if sinkErr := r.finishSink(err); err == nil {
		err = sinkErr
	}

	res := Result{
		Written:  r.written,
		Summary:  r.collector.Snapshot(),
		Duration: time.Since(r.since),
	}
	if err != nil {
		r.logger.Error("pipeline failed", append(res.Summary.LogAttrs(), "duration", res.Duration, "err", err)...)
		return res, err
	}

	if res.Empty() {
		r.logger.Info("no messages found", append(res.Summary.LogAttrs(), "duration", res.Duration)...)
		return res, ErrEmptyBatch
	}

	r.logger.Info("pipeline completed", append(res.Summary.LogAttrs(), "duration", res.Duration)...)
	return res, nil
}

func (r *Runner) bridge(ctx context.Context) error {
	defer close(r.jobs)
	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-r.messages:
			if !ok {
				return nil
			}

			r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeScanned, MessageID: env.Blob.ID})

			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.jobs <- job{seq: seq, env: env}:
			}
		}
	}
}

func (r *Runner) annotate(ctx context.Context, workers int) error {
	defer close(r.outcomes)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range r.jobs {
				select {
				case <-ctx.Done():
					return
				case r.outcomes <- r.process(j):
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Runner) process(j job) outcome {
	out := outcome{seq: j.seq, id: j.env.Blob.ID}
	if j.env.Err != nil {
		out.err = j.env.Err
		out.stage = stats.StageSource
		return out
	}

	msg, err := parser.Parse(j.env.Blob)
	if err != nil {
		out.err = err
		out.stage = stats.StageAnnotate
		return out
	}
	if ok, reason := r.filter.Decide(msg); !ok {
		out.filtered = reason
		return out
	}
	out.record = annotate.Message(msg, r.opts)
	return out
}

// collect restores input order before anything reaches the sink.
func (r *Runner) collect(ctx context.Context) error {
	pending := make(map[int]outcome)
	next := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out, ok := <-r.outcomes:
			if !ok {
				if len(pending) > 0 {
					return fmt.Errorf("%d outcomes left unordered", len(pending))
				}
				return nil
			}
			pending[out.seq] = out
			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if err := r.deliver(ready); err != nil {
					return err
				}
			}
		}
	}
}

func (r *Runner) deliver(out outcome) error {
	switch {
	case out.err != nil:
		r.logger.Warn("skipping message", "id", out.id, "stage", out.stage, "err", out.err)
		r.EmitEvent(stats.Event{Stage: out.stage, Type: stats.EventTypeSkipped, MessageID: out.id, Err: out.err})
		return nil
	case out.filtered != "":
		r.logger.Debug("message filtered", "id", out.id, "reason", out.filtered)
		r.EmitEvent(stats.Event{Stage: stats.StageAnnotate, Type: stats.EventTypeFiltered, MessageID: out.id})
		return nil
	}

	if r.sink == nil {
		sink, err := r.open()
		if err != nil {
			return r.outputError(out.id, fmt.Errorf("open output: %w", err))
		}
		r.sink = sink
	}
	if err := r.sink.Write(out.record); err != nil {
		return r.outputError(out.id, err)
	}
	r.written++

	r.logger.Debug("message annotated", "id", out.id, "priority", out.record.Priority, "category", out.record.Category)
	r.EmitEvent(stats.Event{
		Stage:     stats.StageAnnotate,
		Type:      stats.EventTypeAnnotated,
		MessageID: out.id,
		Priority:  string(out.record.Priority),
		Category:  string(out.record.Category),
	})
	return nil
}

func (r *Runner) outputError(id string, err error) error {
	r.EmitEvent(stats.Event{Stage: stats.StageOutput, Type: stats.EventTypeError, MessageID: id, Err: err})
	return err
}

func (r *Runner) finishSink(runErr error) error {
	if r.sink == nil {
		return nil
	}
	if runErr != nil {
		return r.sink.Abort()
	}
	return r.sink.Close()
}

func (r *Runner) closeEvents() {
	r.closeEventsOnce.Do(func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		for _, ch := range r.subscribers {
			close(ch)
		}
	})
}

func (r *Runner) fail(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
	r.errMu.Unlock()
}
