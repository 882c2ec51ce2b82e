package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
)

const (
	hallPrefix = "halls:"
	roomPrefix = "rooms:"
)

// Catalog wraps the hall and room repositories with a read through cache.
// Store failures are logged and the repository is used directly.
//
// Each prefix carries a generation that every write bumps. A fill whose load
// raced with a write is not kept in the store.
type Catalog struct {
	halls  persistence.HallRepository
	rooms  persistence.RoomRepository
	store  Store
	logger *slog.Logger

	hallGeneration atomic.Uint64
	roomGeneration atomic.Uint64
}

var (
	_ persistence.HallRepository = (*Catalog)(nil)
	_ persistence.RoomRepository = (*Catalog)(nil)
)

// NewCatalog creates a cached catalog. A nil store disables caching.
func NewCatalog(halls persistence.HallRepository, rooms persistence.RoomRepository, store Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{halls: halls, rooms: rooms, store: store, logger: logger.With("component", "catalog_cache")}
}

func (c *Catalog) CreateHall(ctx context.Context, hall domain.LectureHall) error {
	if err := c.halls.CreateHall(ctx, hall); err != nil {
		return err
	}
	c.invalidate(ctx, hallPrefix)
	return nil
}

func (c *Catalog) UpdateHall(ctx context.Context, hall domain.LectureHall) error {
	if err := c.halls.UpdateHall(ctx, hall); err != nil {
		return err
	}
	c.invalidate(ctx, hallPrefix)
	return nil
}

func (c *Catalog) GetHall(ctx context.Context, id string) (domain.LectureHall, error) {
	return readThrough(ctx, c, hallPrefix+"id:"+id, func() (domain.LectureHall, error) {
		return c.halls.GetHall(ctx, id)
	})
}

func (c *Catalog) ListHalls(ctx context.Context) ([]domain.LectureHall, error) {
	return readThrough(ctx, c, hallPrefix+"all", func() ([]domain.LectureHall, error) {
		return c.halls.ListHalls(ctx)
	})
}

func (c *Catalog) DeleteHall(ctx context.Context, id string) error {
	if err := c.halls.DeleteHall(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, hallPrefix)
	return nil
}

func (c *Catalog) CreateRoom(ctx context.Context, room domain.Room) error {
	if err := c.rooms.CreateRoom(ctx, room); err != nil {
		return err
	}
	c.invalidate(ctx, roomPrefix)
	return nil
}

func (c *Catalog) UpdateRoom(ctx context.Context, room domain.Room) error {
	if err := c.rooms.UpdateRoom(ctx, room); err != nil {
		return err
	}
	c.invalidate(ctx, roomPrefix)
	return nil
}

func (c *Catalog) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	return readThrough(ctx, c, roomPrefix+"id:"+id, func() (domain.Room, error) {
		return c.rooms.GetRoom(ctx, id)
	})
}

func (c *Catalog) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return readThrough(ctx, c, roomPrefix+"all", func() ([]domain.Room, error) {
		return c.rooms.ListRooms(ctx)
	})
}

func (c *Catalog) ListRoomsByHall(ctx context.Context, hallID string) ([]domain.Room, error) {
	return readThrough(ctx, c, roomPrefix+"hall:"+hallID, func() ([]domain.Room, error) {
		return c.rooms.ListRoomsByHall(ctx, hallID)
	})
}

func (c *Catalog) DeleteRoom(ctx context.Context, id string) error {
	if err := c.rooms.DeleteRoom(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, roomPrefix)
	return nil
}

func readThrough[T any](ctx context.Context, c *Catalog, key string, load func() (T, error)) (T, error) {
	if c.store == nil {
		return load()
	}

	var cached T
	hit, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	} else if hit {
		return cached, nil
	}

	generation := c.generation(key)
	before := generation.Load()
	value, err := load()
	if err != nil {
		return value, err
	}
	if generation.Load() != before {
		return value, nil
	}
	if err := c.store.Set(ctx, key, value); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
		return value, nil
	}
	// A write that landed between the check and the Set may have invalidated
	// before the stale value was stored.
	if generation.Load() != before {
		if err := c.store.InvalidatePrefix(ctx, key); err != nil {
			c.logger.WarnContext(ctx, "catalog cache invalidation failed", "key", key, "error", err)
		}
	}
	return value, nil
}

func (c *Catalog) generation(key string) *atomic.Uint64 {
	if strings.HasPrefix(key, hallPrefix) {
		return &c.hallGeneration
	}
	return &c.roomGeneration
}

func (c *Catalog) invalidate(ctx context.Context, prefix string) {
	if c.store == nil {
		return
	}
	c.generation(prefix).Add(1)
	if err := c.store.InvalidatePrefix(ctx, prefix); err != nil {
		c.logger.WarnContext(ctx, "catalog cache invalidation failed", "prefix", prefix, "error", err)
	}
}
