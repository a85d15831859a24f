package tracereg

import (
	"github.com/go-logr/logr"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Span is a symbolic link to trace.Span.
	Span = trace.Span
	// Logger is a symbolic link to logr.Logger.
	Logger = logr.Logger
	// Sampler is a symbolic link to sdktrace.Sampler.
	Sampler = sdktrace.Sampler
	// IDGenerator is a symbolic link to sdktrace.IDGenerator.
	IDGenerator = sdktrace.IDGenerator
	// SpanLimits is a symbolic link to sdktrace.SpanLimits.
	SpanLimits = sdktrace.SpanLimits
	// SpanExporter is a symbolic link to sdktrace.SpanExporter.
	SpanExporter = sdktrace.SpanExporter
)
