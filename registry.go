package tracereg

import (
	"context"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
)

// Registry is the per-process tracer authority. It owns the shared mutable
// configuration, interns exactly one Tracer handle per instrumentation
// identity, and drives shutdown and flushing across the processor chain.
//
// Registry implements trace.TracerProvider and is safe for concurrent use.
// After Shutdown it stays queryable but degenerate: Get returns an inert
// handle, mutators are no-ops, and no span reaches a processor.
type Registry struct {
	embedded.TracerProvider

	log   logr.Logger
	state *sharedState

	// mu guards the handle table and the forced-parent value. Lookup-or-insert
	// is one critical section, which is what makes handle creation
	// exactly-once per identity, and what gives SetForcedParent its no-stale-
	// handle guarantee.
	mu        sync.Mutex
	tracers   map[Scope]*Tracer
	intercept bool
	forced    *trace.SpanContext
}

var _ trace.TracerProvider = (*Registry)(nil)

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithClock sets the time source used for span timestamps.
// Defaults to clockz.RealClock.
func WithClock(c clockz.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.state.clock = c
		}
	}
}

// WithIDGenerator sets the trace/span identifier generator.
// Defaults to a crypto/rand-backed generator.
func WithIDGenerator(g sdktrace.IDGenerator) Option {
	return func(r *Registry) {
		if g != nil {
			r.state.idGen = g
		}
	}
}

// WithResource sets the static resource attributes attached to spans.
// Defaults to the SDK defaults merged with the process environment.
func WithResource(res *resource.Resource) Option {
	return func(r *Registry) {
		if res != nil {
			r.state.res = res
		}
	}
}

// WithSpanLimits sets the caps on attributes, events and links per span.
func WithSpanLimits(limits sdktrace.SpanLimits) Option {
	return func(r *Registry) { r.state.limits = limits }
}

// WithSampler sets the sampling policy.
// Defaults to parent-based with an always-on root.
func WithSampler(s sdktrace.Sampler) Option {
	return func(r *Registry) {
		if s != nil {
			r.state.sampler = s
		}
	}
}

// WithSpanProcessor appends processors to the initial chain.
func WithSpanProcessor(ps ...SpanProcessor) Option {
	return func(r *Registry) {
		for _, p := range ps {
			if p != nil {
				r.state.processors = r.state.processors.with(p)
			}
		}
	}
}

// WithLogger sets the diagnostic sink. Defaults to logr.Discard.
func WithLogger(log logr.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithInterception enables the forced-parent capability: SetForcedParent will
// make every handle, already issued or issued later, parent its spans under
// the given span context.
func WithInterception() Option {
	return func(r *Registry) { r.intercept = true }
}

// New creates a Registry with the given options applied over the defaults.
func New(opts ...Option) *Registry {
	r := &Registry{
		log:     logr.Discard(),
		state:   newSharedState(),
		tracers: make(map[Scope]*Tracer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the Tracer handle for the given instrumentation name and
// version, creating and interning it on first request. An empty name is
// normalized to "unknown" after emitting a diagnostic. Concurrent first
// requests for one identity observe a single handle.
//
// After Shutdown, Get returns a shared inert handle without touching the
// table.
func (r *Registry) Get(name, version string) *Tracer {
	if len(name) == 0 {
		r.log.Info("tracer requested with an empty name, substituting fallback",
			"fallback", defaultTracerName, "version", version)
		name = defaultTracerName
	}
	if r.state.isShutdown() {
		return noopTracer
	}
	scope := Scope{Name: name, Version: version}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Shutdown may have completed while acquiring the lock.
	if r.state.isShutdown() {
		return noopTracer
	}
	if t, ok := r.tracers[scope]; ok {
		return t
	}
	t := &Tracer{scope: scope, reg: r, state: r.state}
	if r.forced != nil {
		t.forcedParent.Store(r.forced)
	}
	r.tracers[scope] = t
	return t
}

// Tracer implements trace.TracerProvider; the instrumentation version is
// taken from trace.WithInstrumentationVersion.
func (r *Registry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	cfg := trace.NewTracerConfig(opts...)
	return r.Get(name, cfg.InstrumentationVersion())
}

// Scopes returns the identities of all interned handles, ordered by name and
// then version.
func (r *Registry) Scopes() []Scope {
	r.mu.Lock()
	scopes := make([]Scope, 0, len(r.tracers))
	for s := range r.tracers {
		scopes = append(scopes, s)
	}
	r.mu.Unlock()

	sort.Slice(scopes, func(i, j int) bool { return scopes[i].Compare(scopes[j]) < 0 })
	return scopes
}

// Clock returns the active time source.
func (r *Registry) Clock() clockz.Clock { return r.state.clockRef() }

// SetClock swaps the time source. Visible immediately to all handles.
func (r *Registry) SetClock(c clockz.Clock) { r.state.setClock(c) }

// IDGenerator returns the active identifier generator.
func (r *Registry) IDGenerator() sdktrace.IDGenerator { return r.state.idGenerator() }

// SetIDGenerator swaps the identifier generator.
func (r *Registry) SetIDGenerator(g sdktrace.IDGenerator) { r.state.setIDGenerator(g) }

// Resource returns the active resource.
func (r *Registry) Resource() *resource.Resource { return r.state.resourceRef() }

// SetResource swaps the resource attached to subsequently ended spans.
func (r *Registry) SetResource(res *resource.Resource) { r.state.setResource(res) }

// SpanLimits returns the active span limits.
func (r *Registry) SpanLimits() sdktrace.SpanLimits { return r.state.spanLimits() }

// SetSpanLimits swaps the span limits.
func (r *Registry) SetSpanLimits(limits sdktrace.SpanLimits) { r.state.setSpanLimits(limits) }

// Sampler returns the active sampler.
func (r *Registry) Sampler() sdktrace.Sampler { return r.state.samplerRef() }

// SetSampler swaps the sampler. Spans started afterwards consult the new
// policy, including through handles obtained earlier.
func (r *Registry) SetSampler(s sdktrace.Sampler) { r.state.setSampler(s) }

// SpanProcessors returns the ordered processor chain as currently held.
func (r *Registry) SpanProcessors() []SpanProcessor {
	return r.state.processorChain().snapshot()
}

// AddSpanProcessor appends p to the processor chain.
func (r *Registry) AddSpanProcessor(p SpanProcessor) { r.state.addProcessor(p) }

// ResetSpanProcessors replaces the chain with a single no-op processor.
// Processors removed this way are not shut down.
func (r *Registry) ResetSpanProcessors() { r.state.resetProcessors() }

// Shutdown irreversibly stops the registry and shuts down the processor
// chain, bounded by the context deadline. It is idempotent: only the first
// call reaches the chain, later calls return nil immediately.
func (r *Registry) Shutdown(ctx context.Context) error {
	return r.state.shutdown(ctx)
}

// ForceFlush asks every processor in the chain to export buffered data,
// bounded by the context deadline. It neither checks nor changes the
// shutdown state.
func (r *Registry) ForceFlush(ctx context.Context) error {
	return r.state.processorChain().ForceFlush(ctx)
}

// SetForcedParent installs sc as the parent adopted by every span started
// through this registry's handles, existing and future, overriding any
// caller-supplied parent. Passing an invalid span context clears the forced
// parent. The update and the broadcast to resident handles happen in one
// critical section shared with handle creation, so a Get racing with this
// call can never observe a stale value.
//
// The registry must have been built with WithInterception; otherwise the call
// is ignored with a diagnostic.
func (r *Registry) SetForcedParent(sc trace.SpanContext) {
	if !r.intercept {
		r.log.V(1).Info("forced parent ignored, interception not enabled")
		return
	}
	var fp *trace.SpanContext
	if sc.IsValid() {
		fp = &sc
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.forced = fp
	for _, t := range r.tracers {
		t.forcedParent.Store(fp)
	}
}

// ForcedParent reports the currently installed forced parent, if any.
func (r *Registry) ForcedParent() (trace.SpanContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forced == nil {
		return trace.SpanContext{}, false
	}
	return *r.forced, true
}
