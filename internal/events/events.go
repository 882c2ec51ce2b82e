// Package events publishes booking change notifications.
package events

import (
	"context"
	"strings"
	"time"
)

// Type names a booking change.
type Type string

const (
	BookingCreated         Type = "booking.created"
	BookingUpdated         Type = "booking.updated"
	BookingDeleted         Type = "booking.deleted"
	BookingTempFreeChanged Type = "booking.temp_free_changed"
)

// BookingEvent is emitted after a booking write commits.
type BookingEvent struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	BookingID  string    `json:"bookingId"`
	RoomID     string    `json:"roomId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers booking events.
type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }
func (NopPublisher) Close() error                                { return nil }

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
