package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	writer := &recordingWriter{}
	publisher := newKafkaPublisher(writer, "booking-events", nil)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	event := BookingEvent{
		ID:         "evt-1",
		Type:       BookingCreated,
		BookingID:  "b-1",
		RoomID:     "R101",
		OccurredAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
	}
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "R101" {
		t.Errorf("expected message keyed by room, got %q", msg.Key)
	}
	carrier := &headerCarrier{headers: msg.Headers}
	if carrier.Get("event_type") != "booking.created" {
		t.Errorf("missing event_type header: %+v", msg.Headers)
	}
	if carrier.Get("traceparent") == "" {
		t.Errorf("expected traceparent header, got %+v", msg.Headers)
	}

	var decoded BookingEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.BookingID != "b-1" || decoded.Type != BookingCreated {
		t.Errorf("unexpected payload %+v", decoded)
	}

	if err := publisher.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer to be closed")
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	t.Parallel()

	boom := errors.New("leader not available")
	publisher := newKafkaPublisher(&recordingWriter{err: boom}, "booking-events", nil)
	err := publisher.Publish(context.Background(), BookingEvent{Type: BookingDeleted, BookingID: "b-9"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
}

func TestSplitBrokers(t *testing.T) {
	t.Parallel()

	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
