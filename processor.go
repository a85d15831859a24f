package tracereg

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// SpanProcessor receives span lifecycle events from every recording span
// started through a Registry. Implementations must be safe for concurrent
// use; OnStart and OnEnd are called synchronously on the span's goroutine,
// so they should return quickly and buffer internally if they export.
type SpanProcessor interface {
	// OnStart is called when a recording span starts. parent is the context
	// the span was started from, before the span itself was injected into it.
	OnStart(parent context.Context, s trace.Span)
	// OnEnd is called exactly once per recording span, with an immutable
	// snapshot taken when the span ended.
	OnEnd(s SpanSnapshot)
	// Shutdown drains the processor and releases its resources, bounded by
	// the context deadline. The registry calls it at most once.
	Shutdown(ctx context.Context) error
	// ForceFlush exports any buffered data, bounded by the context deadline.
	ForceFlush(ctx context.Context) error
}

// multiProcessor fans lifecycle events out to an ordered list of processors,
// acting as one SpanProcessor. The slice is never mutated after construction;
// the shared state mutates the chain by swapping in a replacement composite,
// so in-flight fan-outs always see a consistent list.
type multiProcessor struct {
	procs []SpanProcessor
}

// with returns a new composite with p appended.
func (m *multiProcessor) with(p SpanProcessor) *multiProcessor {
	procs := make([]SpanProcessor, 0, len(m.procs)+1)
	procs = append(procs, m.procs...)
	procs = append(procs, p)
	return &multiProcessor{procs: procs}
}

// snapshot returns the ordered processor list. The caller must not modify it.
func (m *multiProcessor) snapshot() []SpanProcessor {
	procs := make([]SpanProcessor, len(m.procs))
	copy(procs, m.procs)
	return procs
}

func (m *multiProcessor) OnStart(parent context.Context, s trace.Span) {
	for _, p := range m.procs {
		p.OnStart(parent, s)
	}
}

func (m *multiProcessor) OnEnd(s SpanSnapshot) {
	for _, p := range m.procs {
		p.OnEnd(s)
	}
}

func (m *multiProcessor) Shutdown(ctx context.Context) error {
	var err error
	for _, p := range m.procs {
		err = multierr.Append(err, p.Shutdown(ctx))
	}
	return err
}

func (m *multiProcessor) ForceFlush(ctx context.Context) error {
	var err error
	for _, p := range m.procs {
		err = multierr.Append(err, p.ForceFlush(ctx))
	}
	return err
}

// noopProcessor discards everything. ResetSpanProcessors swaps it in as the
// sole element of the chain.
type noopProcessor struct{}

func (noopProcessor) OnStart(context.Context, trace.Span) {}
func (noopProcessor) OnEnd(SpanSnapshot)                  {}
func (noopProcessor) Shutdown(context.Context) error      { return nil }
func (noopProcessor) ForceFlush(context.Context) error    { return nil }
