package tracereg

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/stdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// fakeProcessor counts lifecycle calls and returns canned errors.
type fakeProcessor struct {
	mu          sync.Mutex
	started     int
	ended       int
	shutdowns   int
	flushes     int
	shutdownErr error
	flushErr    error
}

func (p *fakeProcessor) OnStart(context.Context, trace.Span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
}

func (p *fakeProcessor) OnEnd(SpanSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended++
}

func (p *fakeProcessor) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdowns++
	return p.shutdownErr
}

func (p *fakeProcessor) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
	if p.flushErr != nil {
		return p.flushErr
	}
	return ctx.Err()
}

func TestGetReturnsSameHandle(t *testing.T) {
	reg := New()
	t1 := reg.Get("worker", "v1")
	t2 := reg.Get("worker", "v1")
	assert.Same(t, t1, t2)
	assert.Equal(t, Scope{Name: "worker", Version: "v1"}, t1.Scope())
}

func TestGetDistinguishesVersions(t *testing.T) {
	reg := New()
	t1 := reg.Get("worker", "v1")
	t2 := reg.Get("worker", "v2")
	assert.NotSame(t, t1, t2)
	assert.Equal(t, []Scope{
		{Name: "worker", Version: "v1"},
		{Name: "worker", Version: "v2"},
	}, reg.Scopes())
}

func TestGetNormalizesEmptyName(t *testing.T) {
	var buf bytes.Buffer
	reg := New(WithLogger(stdr.New(log.New(&buf, "", 0))))

	t1 := reg.Get("", "v1")
	t2 := reg.Get("unknown", "v1")
	assert.Same(t, t1, t2)
	assert.Equal(t, "unknown", t1.Scope().Name)
	// The diagnostic names the substituted fallback.
	assert.Contains(t, buf.String(), "unknown")
}

func TestGetConcurrentCreatesOnce(t *testing.T) {
	reg := New()

	const goroutines = 32
	handles := make([]*Tracer, goroutines)
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			handles[i] = reg.Get("worker", "v1")
		}(i)
	}
	start.Done()
	done.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, handles[0], handles[i])
	}
	assert.Len(t, reg.Scopes(), 1)
}

func TestTracerProviderInterface(t *testing.T) {
	reg := New()
	var tp trace.TracerProvider = reg

	tr := tp.Tracer("worker", trace.WithInstrumentationVersion("v1"))
	require.IsType(t, &Tracer{}, tr)
	assert.Same(t, reg.Get("worker", "v1"), tr)
}

func TestConfigurationMutators(t *testing.T) {
	reg := New()

	fake := clockz.NewFakeClock()
	reg.SetClock(fake)
	assert.Same(t, fake, reg.Clock())

	gen := DeterministicIDGenerator(1)
	reg.SetIDGenerator(gen)
	assert.Same(t, gen, reg.IDGenerator())

	res := resource.NewSchemaless(attribute.String("service.name", "test"))
	reg.SetResource(res)
	assert.Same(t, res, reg.Resource())

	limits := sdktrace.NewSpanLimits()
	limits.AttributeCountLimit = 3
	reg.SetSpanLimits(limits)
	assert.Equal(t, 3, reg.SpanLimits().AttributeCountLimit)

	sampler := sdktrace.NeverSample()
	reg.SetSampler(sampler)
	assert.Equal(t, sampler, reg.Sampler())

	// Nil swaps are rejected, not applied.
	reg.SetClock(nil)
	assert.Same(t, fake, reg.Clock())
}

func TestProcessorChain(t *testing.T) {
	p1 := &fakeProcessor{}
	p2 := &fakeProcessor{}
	reg := New(WithSpanProcessor(p1))
	reg.AddSpanProcessor(p2)

	procs := reg.SpanProcessors()
	require.Len(t, procs, 2)
	assert.Same(t, p1, procs[0])
	assert.Same(t, p2, procs[1])

	reg.ResetSpanProcessors()
	procs = reg.SpanProcessors()
	require.Len(t, procs, 1)
	assert.IsType(t, noopProcessor{}, procs[0])

	// Processors removed by the reset are out of the event path.
	_, span := reg.Get("worker", "").Start(context.Background(), "op")
	span.End()
	assert.Equal(t, 0, p1.started)
	assert.Equal(t, 0, p1.ended)
}

func TestShutdownIsIdempotent(t *testing.T) {
	p := &fakeProcessor{}
	reg := New(WithSpanProcessor(p))

	require.NoError(t, reg.Shutdown(context.Background()))
	require.NoError(t, reg.Shutdown(context.Background()))
	assert.Equal(t, 1, p.shutdowns)
}

func TestShutdownPropagatesProcessorError(t *testing.T) {
	errBoom := errors.New("drain failed")
	reg := New(WithSpanProcessor(&fakeProcessor{shutdownErr: errBoom}))

	assert.ErrorIs(t, reg.Shutdown(context.Background()), errBoom)
	// Later calls stay silent no-ops even after a failed drain.
	assert.NoError(t, reg.Shutdown(context.Background()))
}

func TestGetAfterShutdownReturnsInertHandle(t *testing.T) {
	rec := NewSpanRecorder()
	reg := New(WithSpanProcessor(rec))
	require.NoError(t, reg.Shutdown(context.Background()))

	tr := reg.Get("worker", "v1")
	_, span := tr.SpanBuilder("op").Start(context.Background())
	span.End()

	assert.False(t, span.IsRecording())
	assert.Empty(t, rec.Ended())
	// The inert handle is not interned.
	assert.Empty(t, reg.Scopes())
}

func TestMutatorsAfterShutdownAreNoOps(t *testing.T) {
	reg := New()
	original := reg.Sampler()
	require.NoError(t, reg.Shutdown(context.Background()))

	reg.SetSampler(sdktrace.NeverSample())
	assert.Equal(t, original, reg.Sampler())

	reg.AddSpanProcessor(&fakeProcessor{})
	assert.Empty(t, reg.SpanProcessors())
}

func TestForceFlush(t *testing.T) {
	p := &fakeProcessor{}
	reg := New(WithSpanProcessor(p))

	require.NoError(t, reg.ForceFlush(context.Background()))
	assert.Equal(t, 1, p.flushes)

	// An expired deadline surfaces as an error, not a hang.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	assert.ErrorIs(t, reg.ForceFlush(ctx), context.DeadlineExceeded)

	// ForceFlush works after shutdown too; it does not consult the flag.
	require.NoError(t, reg.Shutdown(context.Background()))
	require.NoError(t, reg.ForceFlush(context.Background()))
	assert.Equal(t, 3, p.flushes)
}

func TestForceFlushCombinesErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	reg := New(WithSpanProcessor(&fakeProcessor{flushErr: errA}, &fakeProcessor{flushErr: errB}))

	err := reg.ForceFlush(context.Background())
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}
