package kafkax

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka:9092, ,localhost:9093 ")
	if len(got) != 2 || got[0] != "kafka:9092" || got[1] != "localhost:9093" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestEventHeaders(t *testing.T) {
	h := EventHeaders("evt-1", "barberbook.appointment.booked.v1")
	if HeaderValue(h, HeaderEventID) != "evt-1" {
		t.Fatalf("missing event id header: %v", h)
	}
	if HeaderValue(h, HeaderEventType) != "barberbook.appointment.booked.v1" {
		t.Fatalf("missing event type header: %v", h)
	}
	if HeaderValue(h, "nope") != "" {
		t.Fatal("expected empty value for unknown header")
	}
}

func TestInjectTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, EventHeaders("evt-1", "t"))
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatalf("expected traceparent header to be appended, got %v", headers)
	}
	if HeaderValue(headers, HeaderEventID) != "evt-1" {
		t.Fatal("existing headers must be preserved")
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error without brokers")
	}
}
