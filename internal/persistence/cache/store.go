// Package cache keeps the hall and room catalog in front of the repositories.
// Catalog reads are served from a Store and every catalog write invalidates
// the affected key prefix. Bookings and periods are never cached.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps failures of the backing store.
var ErrUnavailable = errors.New("cache: store unavailable")

// Store holds JSON encoded values by key.
type Store interface {
	// Get decodes the value for key into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key until the store TTL elapses.
	Set(ctx context.Context, key string, value any) error
	// InvalidatePrefix drops every key starting with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}

const (
	defaultTTL        = 5 * time.Minute
	defaultMaxEntries = 256
)
