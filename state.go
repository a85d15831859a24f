package tracereg

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// sharedState is the single mutable configuration bundle owned by a Registry
// and shared by reference with every Tracer handle the Registry has issued.
// Handles read the current field values at span-start time; they never take a
// creation-time snapshot.
//
// One RWMutex guards all swappable fields. Independent per-field atomics
// would satisfy the mutators on their own, but the interception broadcast in
// Registry.SetForcedParent needs configuration updates and handle creation to
// serialize anyway, so the single lock keeps the model uniform.
//
// The stopped flag is monotonic: once it flips to true it never reverses, and
// every configuration mutator becomes a no-op.
type sharedState struct {
	mu         sync.RWMutex
	clock      clockz.Clock
	idGen      sdktrace.IDGenerator
	res        *resource.Resource
	limits     sdktrace.SpanLimits
	sampler    sdktrace.Sampler
	processors *multiProcessor
	stopped    atomic.Bool
}

func newSharedState() *sharedState {
	return &sharedState{
		clock:      clockz.RealClock,
		idGen:      newRandomIDGenerator(),
		res:        defaultResource(),
		limits:     sdktrace.NewSpanLimits(),
		sampler:    sdktrace.ParentBased(sdktrace.AlwaysSample()),
		processors: &multiProcessor{},
	}
}

// defaultResource resolves the static resource attributes attached to spans:
// the SDK defaults overlaid with whatever OTEL_RESOURCE_ATTRIBUTES and
// OTEL_SERVICE_NAME declare.
func defaultResource() *resource.Resource {
	res, err := resource.Merge(resource.Default(), resource.Environment())
	if err != nil {
		return resource.Default()
	}
	return res
}

func (s *sharedState) isShutdown() bool { return s.stopped.Load() }

// shutdown flips the terminal flag and drains the processor chain. Only the
// first call reaches the chain; every later call is a nil no-op.
func (s *sharedState) shutdown(ctx context.Context) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	return s.processorChain().Shutdown(ctx)
}

func (s *sharedState) clockRef() clockz.Clock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock
}

func (s *sharedState) now() time.Time { return s.clockRef().Now() }

func (s *sharedState) setClock(c clockz.Clock) {
	if c == nil || s.isShutdown() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
}

func (s *sharedState) idGenerator() sdktrace.IDGenerator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idGen
}

func (s *sharedState) setIDGenerator(g sdktrace.IDGenerator) {
	if g == nil || s.isShutdown() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idGen = g
}

func (s *sharedState) resourceRef() *resource.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.res
}

func (s *sharedState) setResource(res *resource.Resource) {
	if res == nil || s.isShutdown() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res = res
}

func (s *sharedState) spanLimits() sdktrace.SpanLimits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

func (s *sharedState) setSpanLimits(limits sdktrace.SpanLimits) {
	if s.isShutdown() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = limits
}

func (s *sharedState) samplerRef() sdktrace.Sampler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sampler
}

func (s *sharedState) setSampler(sampler sdktrace.Sampler) {
	if sampler == nil || s.isShutdown() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampler = sampler
}

// processorChain returns the current composite. The composite itself is
// immutable; mutation swaps in a replacement, so callers may fan out events
// without holding the lock.
func (s *sharedState) processorChain() *multiProcessor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processors
}

func (s *sharedState) addProcessor(p SpanProcessor) {
	if p == nil || s.isShutdown() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processors = s.processors.with(p)
}

// resetProcessors replaces the whole chain with a single no-op processor.
func (s *sharedState) resetProcessors() {
	if s.isShutdown() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processors = &multiProcessor{procs: []SpanProcessor{noopProcessor{}}}
}
