package tracereg

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
)

// Tracer is the identity-stable handle callers use to start spans. A Registry
// issues at most one Tracer per Scope, so handles may be compared and cached
// freely. The handle holds a reference to the registry's shared state, never
// a copy: configuration swapped on the Registry is observed by the very next
// span started through an already-issued handle.
type Tracer struct {
	embedded.Tracer

	scope Scope
	reg   *Registry
	state *sharedState

	// forcedParent is only ever set on handles issued by an interception
	// registry. It is written under the registry mutex and read lock-free on
	// the span-start path.
	forcedParent atomic.Pointer[trace.SpanContext]
}

var _ trace.Tracer = (*Tracer)(nil)

// noopTracer is the shared inert handle returned for requests against a
// shut-down Registry. It is deliberately not interned in the registry table,
// and callers must not assume inert handles are identity-stable.
var noopTracer = &Tracer{}

// Scope returns the instrumentation identity this handle was issued for.
func (t *Tracer) Scope() Scope { return t.scope }

// SpanBuilder returns a builder for a span named name. If the registry has
// shut down, the returned builder is inert: starting it produces a span that
// records nothing and reaches no processor.
func (t *Tracer) SpanBuilder(name string) *SpanBuilder {
	b := &SpanBuilder{tracer: t, name: name, kind: trace.SpanKindInternal}
	if t.state == nil || t.state.isShutdown() {
		b.noop = true
		return b
	}
	b.forced = t.forcedParent.Load()
	return b
}

// Start implements trace.Tracer on top of SpanBuilder, so the handle can be
// consumed by any OpenTelemetry-instrumented code.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	b := t.SpanBuilder(name).
		SetSpanKind(cfg.SpanKind()).
		SetAttributes(cfg.Attributes()...).
		SetLinks(cfg.Links()...).
		SetStartTime(cfg.Timestamp())
	if cfg.NewRoot() {
		b.SetNewRoot()
	}
	return b.Start(ctx)
}

// SpanBuilder assembles a single span-start request. It is not safe for
// concurrent use and must not be reused after Start.
type SpanBuilder struct {
	tracer *Tracer
	name   string

	parent    *trace.SpanContext
	forced    *trace.SpanContext
	kind      trace.SpanKind
	attrs     []attribute.KeyValue
	links     []trace.Link
	startTime time.Time
	newRoot   bool
	noop      bool
}

// SetParent sets the parent span context explicitly, instead of deriving it
// from the context passed to Start. A forced parent installed through
// registry interception still takes precedence.
func (b *SpanBuilder) SetParent(sc trace.SpanContext) *SpanBuilder {
	b.parent = &sc
	return b
}

// SetSpanKind sets the span kind. Unspecified kinds collapse to internal.
func (b *SpanBuilder) SetSpanKind(kind trace.SpanKind) *SpanBuilder {
	b.kind = validateSpanKind(kind)
	return b
}

// SetAttributes appends initial span attributes; they are also visible to the
// sampler.
func (b *SpanBuilder) SetAttributes(kv ...attribute.KeyValue) *SpanBuilder {
	b.attrs = append(b.attrs, kv...)
	return b
}

// SetLinks appends links to other spans.
func (b *SpanBuilder) SetLinks(links ...trace.Link) *SpanBuilder {
	b.links = append(b.links, links...)
	return b
}

// SetStartTime overrides the clock-derived start timestamp.
func (b *SpanBuilder) SetStartTime(ts time.Time) *SpanBuilder {
	b.startTime = ts
	return b
}

// SetNewRoot makes the span a root of a new trace, ignoring any parent in the
// Start context.
func (b *SpanBuilder) SetNewRoot() *SpanBuilder {
	b.newRoot = true
	return b
}

// Start builds the span. The shared state is consulted at this point, so the
// sampler, id generator, clock and limits in effect now decide the outcome,
// not those in effect at handle or builder creation. The returned context
// carries the new span.
func (b *SpanBuilder) Start(ctx context.Context) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	t := b.tracer
	if b.noop || t.state == nil || t.state.isShutdown() {
		span := nonRecordingSpan{sc: trace.SpanContextFromContext(ctx), tp: spanProvider(t)}
		return trace.ContextWithSpan(ctx, span), span
	}
	state := t.state

	psc := trace.SpanContextFromContext(ctx)
	switch {
	case b.forced != nil:
		psc = *b.forced
	case b.parent != nil:
		psc = *b.parent
	case b.newRoot:
		psc = trace.SpanContext{}
	}

	gen := state.idGenerator()
	var tid trace.TraceID
	var sid trace.SpanID
	if psc.TraceID().IsValid() {
		tid = psc.TraceID()
		sid = gen.NewSpanID(ctx, tid)
	} else {
		tid, sid = gen.NewIDs(ctx)
	}

	result := state.samplerRef().ShouldSample(sdktrace.SamplingParameters{
		ParentContext: trace.ContextWithSpanContext(ctx, psc),
		TraceID:       tid,
		Name:          b.name,
		Kind:          b.kind,
		Attributes:    b.attrs,
		Links:         b.links,
	})

	var flags trace.TraceFlags
	if result.Decision == sdktrace.RecordAndSample {
		flags = trace.FlagsSampled
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: flags,
		TraceState: result.Tracestate,
	})

	if result.Decision == sdktrace.Drop {
		span := nonRecordingSpan{sc: sc, tp: t.reg}
		return trace.ContextWithSpan(ctx, span), span
	}

	start := b.startTime
	if start.IsZero() {
		start = state.now()
	}
	span := &recordingSpan{
		tracer: t,
		sc:     sc,
		parent: psc,
		kind:   b.kind,
		name:   b.name,
		start:  start,
	}
	limits := state.spanLimits()
	span.addAttributesLocked(limits, b.attrs)
	span.addAttributesLocked(limits, result.Attributes)
	for _, l := range b.links {
		span.AddLink(l)
	}

	state.processorChain().OnStart(ctx, span)
	return trace.ContextWithSpan(ctx, span), span
}

func validateSpanKind(kind trace.SpanKind) trace.SpanKind {
	switch kind {
	case trace.SpanKindClient, trace.SpanKindServer, trace.SpanKindProducer, trace.SpanKindConsumer, trace.SpanKindInternal:
		return kind
	default:
		return trace.SpanKindInternal
	}
}

// spanProvider picks the provider exposed by spans of an inert handle.
func spanProvider(t *Tracer) trace.TracerProvider {
	if t != nil && t.reg != nil {
		return t.reg
	}
	return nil
}
