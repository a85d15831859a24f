package tracereg

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// SpanRecorder is an in-memory SpanProcessor retaining every started span and
// every ended-span snapshot, in order. It collects synchronously, so a test
// can assert on Ended() right after span.End() without flushing.
type SpanRecorder struct {
	mu      sync.Mutex
	started []trace.Span
	ended   []SpanSnapshot
}

var _ SpanProcessor = (*SpanRecorder)(nil)

// NewSpanRecorder creates an empty recorder.
func NewSpanRecorder() *SpanRecorder { return &SpanRecorder{} }

// OnStart implements SpanProcessor.
func (r *SpanRecorder) OnStart(_ context.Context, s trace.Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, s)
}

// OnEnd implements SpanProcessor.
func (r *SpanRecorder) OnEnd(s SpanSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, s)
}

// Shutdown implements SpanProcessor. The recorded data stays readable.
func (r *SpanRecorder) Shutdown(context.Context) error { return nil }

// ForceFlush implements SpanProcessor; recording is synchronous, so there is
// nothing to flush.
func (r *SpanRecorder) ForceFlush(context.Context) error { return nil }

// Started returns the spans started so far.
func (r *SpanRecorder) Started() []trace.Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]trace.Span(nil), r.started...)
}

// Ended returns the snapshots of spans ended so far.
func (r *SpanRecorder) Ended() []SpanSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SpanSnapshot(nil), r.ended...)
}

// Reset discards everything recorded so far.
func (r *SpanRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = nil
	r.ended = nil
}
