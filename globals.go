package tracereg

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Install registers r as the process-global OpenTelemetry TracerProvider.
// This is a shorthand for otel.SetTracerProvider(r).
func Install(r *Registry) { otel.SetTracerProvider(r) }

// GlobalProvider returns the globally-registered TracerProvider.
// This is a shorthand for otel.GetTracerProvider().
func GlobalProvider() trace.TracerProvider { return otel.GetTracerProvider() }

// ShutdownGlobal shuts down the globally-registered provider, if it supports
// shutdown. A positive timeout bounds the call; zero means no extra deadline.
func ShutdownGlobal(ctx context.Context, timeout time.Duration) error {
	return withTimeout(ctx, timeout, func(ctx context.Context) error {
		if s, ok := otel.GetTracerProvider().(interface {
			Shutdown(ctx context.Context) error
		}); ok {
			return s.Shutdown(ctx)
		}
		return nil
	})
}

// ForceFlushGlobal flushes the globally-registered provider, if it supports
// flushing. A positive timeout bounds the call; zero means no extra deadline.
func ForceFlushGlobal(ctx context.Context, timeout time.Duration) error {
	return withTimeout(ctx, timeout, func(ctx context.Context) error {
		if f, ok := otel.GetTracerProvider().(interface {
			ForceFlush(ctx context.Context) error
		}); ok {
			return f.ForceFlush(ctx)
		}
		return nil
	})
}

func withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
