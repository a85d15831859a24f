/*
Package tracereg provides a per-process tracer registry: it hands out
identity-stable Tracer handles keyed by instrumentation name and version,
shares one mutable configuration bundle (clock, id generator, resource,
span limits, sampler, processor chain) between every handle it has issued,
and coordinates an irreversible shutdown after which all tracing is inert.

A Registry implements trace.TracerProvider, so it can be registered
process-wide with otel.SetTracerProvider (or tracereg.Install) and consumed
by any OpenTelemetry-instrumented code:

	reg := tracereg.New(
		tracereg.WithSampler(tracesdk.ParentBased(tracesdk.AlwaysSample())),
		tracereg.WithSpanProcessor(tracereg.NewSpanRecorder()),
	)
	defer reg.Shutdown(context.Background())

	tr := reg.Get("worker", "v1.2.3")
	ctx, span := tr.Start(ctx, "doWork")
	defer span.End()

Configuration is shared by reference, not copied: swapping the sampler, the
clock or any other field on the Registry is observed immediately by every
handle already issued, without re-fetching it.

Registries built with WithInterception additionally support SetForcedParent,
which atomically makes every handle, already issued or issued later, adopt
the given span context as the parent of the spans it starts. This is meant
for test harnesses that need all spans collected under one synthetic root.
*/
package tracereg
