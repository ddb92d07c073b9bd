package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "hearth"

// OTelTracer emits spans through an OpenTelemetry tracer provider.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTel traces through provider, or the global provider when it is nil.
func NewOTel(provider trace.TracerProvider) *OTelTracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &OTelTracer{tracer: provider.Tracer(scopeName)}
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(keyValues(attrs)...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.Span.RecordError(err)
		s.Span.SetStatus(codes.Error, err.Error())
	} else {
		s.Span.SetStatus(codes.Ok, "")
	}
	s.Span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.Span.SetAttributes(keyValues(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.Span.AddEvent(name, trace.WithAttributes(keyValues(attrs)...))
}

// keyValues converts attributes; values of other types are rendered with %v.
func keyValues(attrs []Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		var kv attribute.KeyValue
		switch v := a.Value.(type) {
		case string:
			kv = attribute.String(a.Key, v)
		case bool:
			kv = attribute.Bool(a.Key, v)
		case int:
			kv = attribute.Int(a.Key, v)
		case int64:
			kv = attribute.Int64(a.Key, v)
		case float64:
			kv = attribute.Float64(a.Key, v)
		case []string:
			kv = attribute.StringSlice(a.Key, v)
		case fmt.Stringer:
			kv = attribute.String(a.Key, v.String())
		default:
			kv = attribute.String(a.Key, fmt.Sprint(v))
		}
		out = append(out, kv)
	}
	return out
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = otelSpan{}
)
