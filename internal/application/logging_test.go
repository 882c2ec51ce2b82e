package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/lecture-room-booking/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotFound, "not_found"},
		{fmt.Errorf("wrapped: %w", ErrInUse), "in_use"},
		{&ConflictError{}, "conflict"},
		{ErrAlreadyExists, "already_exists"},
		{&ValidationError{FieldErrors: map[string]string{"x": "y"}}, "validation"},
		{errors.New("disk full"), "unexpected"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctxLogger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), "BookingService", "CreateBooking", "room_id", "R101").Info("hello")

	out := buf.String()
	for _, want := range []string{`"service":"BookingService"`, `"operation":"CreateBooking"`, `"room_id":"R101"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
