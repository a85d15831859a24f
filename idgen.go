package tracereg

import (
	"context"
	crand "crypto/rand"
	"math/rand"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// randomIDGenerator is the default IDGenerator, producing identifiers from
// crypto/rand.
type randomIDGenerator struct{}

func newRandomIDGenerator() sdktrace.IDGenerator { return randomIDGenerator{} }

func (randomIDGenerator) NewIDs(ctx context.Context) (trace.TraceID, trace.SpanID) {
	var tid trace.TraceID
	for !tid.IsValid() {
		_, _ = crand.Read(tid[:])
	}
	return tid, randomSpanID()
}

func (randomIDGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	return randomSpanID()
}

func randomSpanID() trace.SpanID {
	var sid trace.SpanID
	for !sid.IsValid() {
		_, _ = crand.Read(sid[:])
	}
	return sid
}

// DeterministicIDGenerator returns an IDGenerator producing a reproducible
// identifier sequence from seed. Useful for unit tests; DO NOT use in
// production.
func DeterministicIDGenerator(seed int64) sdktrace.IDGenerator {
	return &deterministicIDGenerator{
		// The "weak" math/rand generator is deliberate here: the point is
		// determinism, not unguessable identifiers.
		//nolint:gosec
		rnd: rand.New(rand.NewSource(seed)),
	}
}

type deterministicIDGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (g *deterministicIDGenerator) NewIDs(context.Context) (trace.TraceID, trace.SpanID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var tid trace.TraceID
	_, _ = g.rnd.Read(tid[:])
	var sid trace.SpanID
	_, _ = g.rnd.Read(sid[:])
	return tid, sid
}

func (g *deterministicIDGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var sid trace.SpanID
	_, _ = g.rnd.Read(sid[:])
	return sid
}
