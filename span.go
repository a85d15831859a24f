package tracereg

import (
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

// SpanSnapshot is the immutable view of an ended span handed to
// SpanProcessor.OnEnd. The slices are owned by the snapshot; processors may
// retain them.
type SpanSnapshot struct {
	Name              string
	SpanContext       trace.SpanContext
	Parent            trace.SpanContext
	SpanKind          trace.SpanKind
	StartTime         time.Time
	EndTime           time.Time
	Attributes        []attribute.KeyValue
	Events            []sdktrace.Event
	Links             []sdktrace.Link
	Status            sdktrace.Status
	DroppedAttributes int
	DroppedEvents     int
	DroppedLinks      int
	Scope             Scope
	Resource          *resource.Resource
}

// recordingSpan is the span implementation produced for sampled (or
// record-only) span starts. All mutating methods become no-ops once the span
// has ended; End itself delivers the snapshot to the processor chain exactly
// once.
type recordingSpan struct {
	embedded.Span

	tracer *Tracer
	sc     trace.SpanContext
	parent trace.SpanContext
	kind   trace.SpanKind

	mu            sync.Mutex
	name          string
	start         time.Time
	attrs         []attribute.KeyValue
	events        []sdktrace.Event
	links         []sdktrace.Link
	status        sdktrace.Status
	droppedAttrs  int
	droppedEvents int
	droppedLinks  int
	ended         bool
}

var _ trace.Span = (*recordingSpan)(nil)

func (s *recordingSpan) SpanContext() trace.SpanContext { return s.sc }

func (s *recordingSpan) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ended
}

func (s *recordingSpan) TracerProvider() trace.TracerProvider { return s.tracer.reg }

func (s *recordingSpan) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || len(name) == 0 {
		return
	}
	s.name = name
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	limits := s.tracer.state.spanLimits()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.addAttributesLocked(limits, kv)
}

// addAttributesLocked appends kv, enforcing the attribute count and value
// length limits. Excess attributes count as dropped.
func (s *recordingSpan) addAttributesLocked(limits sdktrace.SpanLimits, kv []attribute.KeyValue) {
	for _, a := range kv {
		if !a.Valid() {
			s.droppedAttrs++
			continue
		}
		if limits.AttributeCountLimit >= 0 && len(s.attrs) >= limits.AttributeCountLimit {
			s.droppedAttrs++
			continue
		}
		s.attrs = append(s.attrs, truncateAttr(limits.AttributeValueLengthLimit, a))
	}
}

func (s *recordingSpan) SetStatus(code codes.Code, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.status.Code == codes.Ok {
		return
	}
	// The description only carries meaning for an error status.
	if code != codes.Error {
		description = ""
	}
	s.status = sdktrace.Status{Code: code, Description: description}
}

func (s *recordingSpan) AddEvent(name string, options ...trace.EventOption) {
	cfg := trace.NewEventConfig(options...)
	s.addEvent(name, cfg.Attributes(), cfg.Timestamp())
}

func (s *recordingSpan) addEvent(name string, attrs []attribute.KeyValue, ts time.Time) {
	limits := s.tracer.state.spanLimits()
	if ts.IsZero() {
		ts = s.tracer.state.now()
	}
	attrs, dropped := capAttrs(limits, limits.AttributePerEventCountLimit, attrs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	if limits.EventCountLimit >= 0 && len(s.events) >= limits.EventCountLimit {
		s.droppedEvents++
		return
	}
	s.events = append(s.events, sdktrace.Event{
		Name:                  name,
		Attributes:            attrs,
		DroppedAttributeCount: dropped,
		Time:                  ts,
	})
}

func (s *recordingSpan) RecordError(err error, options ...trace.EventOption) {
	if err == nil {
		return
	}
	cfg := trace.NewEventConfig(options...)
	attrs := append(cfg.Attributes(),
		semconv.ExceptionTypeKey.String(fmt.Sprintf("%T", err)),
		semconv.ExceptionMessageKey.String(err.Error()),
	)
	s.addEvent(semconv.ExceptionEventName, attrs, cfg.Timestamp())
}

func (s *recordingSpan) AddLink(link trace.Link) {
	if !link.SpanContext.IsValid() && len(link.Attributes) == 0 {
		return
	}
	limits := s.tracer.state.spanLimits()
	attrs, dropped := capAttrs(limits, limits.AttributePerLinkCountLimit, link.Attributes)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	if limits.LinkCountLimit >= 0 && len(s.links) >= limits.LinkCountLimit {
		s.droppedLinks++
		return
	}
	s.links = append(s.links, sdktrace.Link{
		SpanContext:           link.SpanContext,
		Attributes:            attrs,
		DroppedAttributeCount: dropped,
	})
}

// End completes the span and hands its snapshot to the processor chain. Only
// the first call has any effect.
func (s *recordingSpan) End(options ...trace.SpanEndOption) {
	cfg := trace.NewSpanEndConfig(options...)
	end := cfg.Timestamp()
	if end.IsZero() {
		end = s.tracer.state.now()
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	snap := s.snapshotLocked(end)
	s.mu.Unlock()

	s.tracer.state.processorChain().OnEnd(snap)
}

func (s *recordingSpan) snapshotLocked(end time.Time) SpanSnapshot {
	snap := SpanSnapshot{
		Name:              s.name,
		SpanContext:       s.sc,
		Parent:            s.parent,
		SpanKind:          s.kind,
		StartTime:         s.start,
		EndTime:           end,
		Status:            s.status,
		DroppedAttributes: s.droppedAttrs,
		DroppedEvents:     s.droppedEvents,
		DroppedLinks:      s.droppedLinks,
		Scope:             s.tracer.scope,
		Resource:          s.tracer.state.resourceRef(),
	}
	snap.Attributes = append([]attribute.KeyValue(nil), s.attrs...)
	snap.Events = append([]sdktrace.Event(nil), s.events...)
	snap.Links = append([]sdktrace.Link(nil), s.links...)
	return snap
}

// capAttrs enforces a per-collection attribute count limit plus the value
// length limit, returning the kept attributes and the dropped count.
func capAttrs(limits sdktrace.SpanLimits, countLimit int, attrs []attribute.KeyValue) ([]attribute.KeyValue, int) {
	dropped := 0
	kept := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if !a.Valid() {
			dropped++
			continue
		}
		if countLimit >= 0 && len(kept) >= countLimit {
			dropped++
			continue
		}
		kept = append(kept, truncateAttr(limits.AttributeValueLengthLimit, a))
	}
	return kept, dropped
}

// truncateAttr caps string-valued attributes at limit bytes. A negative limit
// means unlimited.
func truncateAttr(limit int, attr attribute.KeyValue) attribute.KeyValue {
	if limit < 0 {
		return attr
	}
	switch attr.Value.Type() {
	case attribute.STRING:
		if v := attr.Value.AsString(); len(v) > limit {
			return attr.Key.String(v[:limit])
		}
	case attribute.STRINGSLICE:
		v := attr.Value.AsStringSlice()
		changed := false
		for i := range v {
			if len(v[i]) > limit {
				v[i] = v[i][:limit]
				changed = true
			}
		}
		if changed {
			return attr.Key.StringSlice(v)
		}
	}
	return attr
}

// nonRecordingSpan carries a span context but records nothing. It backs
// dropped (unsampled) spans as well as every span started after shutdown.
type nonRecordingSpan struct {
	embedded.Span

	sc trace.SpanContext
	tp trace.TracerProvider
}

var _ trace.Span = nonRecordingSpan{}

func (s nonRecordingSpan) SpanContext() trace.SpanContext        { return s.sc }
func (nonRecordingSpan) IsRecording() bool                       { return false }
func (nonRecordingSpan) End(...trace.SpanEndOption)              {}
func (nonRecordingSpan) AddEvent(string, ...trace.EventOption)   {}
func (nonRecordingSpan) AddLink(trace.Link)                      {}
func (nonRecordingSpan) RecordError(error, ...trace.EventOption) {}
func (nonRecordingSpan) SetStatus(codes.Code, string)            {}
func (nonRecordingSpan) SetName(string)                          {}
func (nonRecordingSpan) SetAttributes(...attribute.KeyValue)     {}

func (s nonRecordingSpan) TracerProvider() trace.TracerProvider {
	if s.tp != nil {
		return s.tp
	}
	return noop.NewTracerProvider()
}
