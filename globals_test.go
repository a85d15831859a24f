package tracereg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInstallAndGlobalLifecycle(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	p := &fakeProcessor{}
	reg := New(WithSpanProcessor(p))
	Install(reg)
	assert.Same(t, reg, GlobalProvider())

	require.NoError(t, ForceFlushGlobal(context.Background(), time.Second))
	assert.Equal(t, 1, p.flushes)

	require.NoError(t, ShutdownGlobal(context.Background(), time.Second))
	assert.Equal(t, 1, p.shutdowns)
	assert.True(t, reg.state.isShutdown())
}

func TestGlobalHelpersWithForeignProvider(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	otel.SetTracerProvider(noop.NewTracerProvider())

	// Providers without shutdown/flush support are silently skipped.
	assert.NoError(t, ShutdownGlobal(context.Background(), 0))
	assert.NoError(t, ForceFlushGlobal(context.Background(), 0))
}
