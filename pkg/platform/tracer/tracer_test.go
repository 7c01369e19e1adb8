package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"schemagate/pkg/platform/tracer"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	newCtx, span := tracer.NewNoop().Start(ctx, tracer.SpanExtract, tracer.Int(tracer.AttrSchemaFields, 3))

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)
	span.SetAttributes(tracer.Bool(tracer.AttrRepaired, true))
	span.AddEvent("coerced")
	span.End(errors.New("boom"))
}

func TestOTelTracer(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	_, span := tr.Start(context.Background(), tracer.SpanInferenceComplete,
		tracer.String(tracer.AttrModel, "qwen2.5:0.5b"),
		tracer.Duration("latency", 1500*time.Millisecond),
		tracer.Float64("temperature", 0.1),
	)
	require.NotNil(t, span)
	span.SetAttributes(tracer.Int(tracer.AttrCompletionLen, 42))
	span.End(nil)
}

func TestDurationIsMilliseconds(t *testing.T) {
	attr := tracer.Duration("d", 2*time.Second)
	assert.Equal(t, int64(2000), attr.Value)
}
