package tracereg

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// ExportProcessor bridges ended-span snapshots to any OpenTelemetry SDK
// SpanExporter. Spans are exported one at a time as they end, like the SDK's
// synchronous mode; batching, retries and wire encoding stay inside the
// exporter. Export errors are accumulated and returned by the next ForceFlush
// or Shutdown rather than interrupting the span's goroutine.
type ExportProcessor struct {
	exporter sdktrace.SpanExporter

	mu   sync.Mutex
	errs error
}

var _ SpanProcessor = (*ExportProcessor)(nil)

// NewExportProcessor wraps exporter as a SpanProcessor.
func NewExportProcessor(exporter sdktrace.SpanExporter) *ExportProcessor {
	return &ExportProcessor{exporter: exporter}
}

// NewStdoutExportProcessor exports pretty-printed spans to os.Stdout, or
// wherever stdouttrace.WithWriter points. Options are applied over the
// defaults and may override them.
func NewStdoutExportProcessor(opts ...stdouttrace.Option) (*ExportProcessor, error) {
	defaultOpts := []stdouttrace.Option{
		stdouttrace.WithPrettyPrint(),
	}
	opts = append(defaultOpts, opts...)
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewExportProcessor(exp), nil
}

// NewOTLPExportProcessor exports spans to an OpenTelemetry Collector over
// insecure gRPC. addr defaults to "localhost:55680" when empty; the collector
// speaks gRPC, so don't add an "http(s)://" prefix. Options are applied over
// the defaults and may override them.
func NewOTLPExportProcessor(ctx context.Context, addr string, opts ...otlptracegrpc.Option) (*ExportProcessor, error) {
	if len(addr) == 0 {
		addr = "localhost:55680"
	}
	defaultOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(addr),
		otlptracegrpc.WithInsecure(),
	}
	opts = append(defaultOpts, opts...)
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewExportProcessor(exp), nil
}

// OnStart implements SpanProcessor.
func (p *ExportProcessor) OnStart(context.Context, trace.Span) {}

// OnEnd implements SpanProcessor.
func (p *ExportProcessor) OnEnd(s SpanSnapshot) {
	err := p.exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub(s).Snapshot()})
	if err != nil {
		p.mu.Lock()
		p.errs = multierr.Append(p.errs, err)
		p.mu.Unlock()
	}
}

// ForceFlush implements SpanProcessor, reporting any export errors gathered
// since the previous flush.
func (p *ExportProcessor) ForceFlush(ctx context.Context) error {
	return multierr.Append(p.takeErrs(), ctx.Err())
}

// Shutdown implements SpanProcessor, shutting the exporter down.
func (p *ExportProcessor) Shutdown(ctx context.Context) error {
	return multierr.Append(p.takeErrs(), p.exporter.Shutdown(ctx))
}

func (p *ExportProcessor) takeErrs() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := p.errs
	p.errs = nil
	return errs
}

// stub converts a snapshot into the SDK's test representation, the only
// public way to mint a ReadOnlySpan outside the SDK.
func stub(s SpanSnapshot) tracetest.SpanStub {
	return tracetest.SpanStub{
		Name:              s.Name,
		SpanContext:       s.SpanContext,
		Parent:            s.Parent,
		SpanKind:          s.SpanKind,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		Attributes:        s.Attributes,
		Events:            s.Events,
		Links:             s.Links,
		Status:            s.Status,
		DroppedAttributes: s.DroppedAttributes,
		DroppedEvents:     s.DroppedEvents,
		DroppedLinks:      s.DroppedLinks,
		Resource:          s.Resource,
		InstrumentationScope: instrumentation.Scope{
			Name:    s.Scope.Name,
			Version: s.Scope.Version,
		},
	}
}
