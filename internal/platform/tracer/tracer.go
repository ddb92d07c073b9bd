// Package tracer is a small tracing abstraction so components can emit spans
// without importing OpenTelemetry throughout the codebase.
//
// Implementations:
//   - NoopTracer: for tests and when tracing is disabled
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import "context"

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span; a non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
//
//	ctx, span := t.Start(ctx, "guard.authorize", tracer.String("operation", op.Name))
//	defer span.End(err)
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute    { return Attribute{Key: key, Value: value} }
func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }
func Int(key string, value int) Attribute   { return Attribute{Key: key, Value: value} }
