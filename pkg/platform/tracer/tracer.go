// Package tracer is a thin tracing abstraction over OpenTelemetry.
//
// Components depend on the Tracer interface; production wires OTelTracer,
// tests wire NoopTracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording err when non-nil.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
//
//	ctx, span := t.Start(ctx, tracer.SpanInferenceComplete,
//	    tracer.String(tracer.AttrModel, model),
//	)
//	defer func() { span.End(err) }()
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanExtract           = "extraction.extract"
	SpanChat              = "extraction.chat"
	SpanCoerce            = "extraction.coerce"
	SpanInferenceComplete = "inference.complete"
	SpanInferenceHealth   = "inference.health"
	SpanGateVerify        = "auth.verify"
)

// Attribute keys.
const (
	AttrModel          = "inference.model"
	AttrPromptChars    = "inference.prompt_chars"
	AttrCompletionLen  = "inference.completion_chars"
	AttrErrorKind      = "error.kind"
	AttrSchemaFields   = "schema.fields"
	AttrAdjustedFields = "coerce.adjusted_fields"
	AttrRepaired       = "coerce.repaired"
	AttrCacheHit       = "cache.hit"
	AttrTenantID       = "tenant.id"
)
