package kafka

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if have := traceHeaders(context.Background()); len(have) != 0 {
		t.Errorf("no span: have %v, want none", have)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := traceHeaders(ctx)
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier.Set(h.Key, string(h.Value))
	}
	if carrier.Get("traceparent") == "" {
		t.Fatalf("missing traceparent header: %v", headers)
	}
	have := trace.SpanContextFromContext(propagation.TraceContext{}.Extract(context.Background(), carrier))
	if have.TraceID() != traceID {
		t.Errorf("trace id: have %v, want %v", have.TraceID(), traceID)
	}
	if have.SpanID() != spanID {
		t.Errorf("span id: have %v, want %v", have.SpanID(), spanID)
	}
}
