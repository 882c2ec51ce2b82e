package application

import (
	"context"
	"slices"
	"sync"

	"github.com/example/lecture-room-booking/internal/domain"
)

// roomLocks serializes the conflict check and the write that follows it for
// each room. Locks are held by this process only.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the locks of roomIDs in sorted order and returns the function
// that releases them. Empty and repeated ids are ignored.
func (l *roomLocks) lock(roomIDs ...string) (unlock func()) {
	ids := make([]string, 0, len(roomIDs))
	for _, id := range roomIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]*roomLock, len(ids))
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*roomLock)
	}
	for i, id := range ids {
		rl, ok := l.locks[id]
		if !ok {
			rl = &roomLock{}
			l.locks[id] = rl
		}
		rl.refs++
		held[i] = rl
	}
	l.mu.Unlock()

	for _, rl := range held {
		rl.mu.Lock()
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		l.mu.Lock()
		for i, id := range ids {
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, id)
			}
		}
		l.mu.Unlock()
	}
}

// lockBooking loads an active booking with its room locked, together with
// any extra rooms. The booking is read again under the lock; if it moved to
// another room meanwhile the locks are taken again.
func (s *BookingService) lockBooking(ctx context.Context, bookingID string, extraRooms ...string) (domain.Booking, func(), error) {
	for {
		booking, err := s.activeBooking(ctx, bookingID)
		if err != nil {
			return domain.Booking{}, nil, err
		}
		unlock := s.locks.lock(append([]string{booking.RoomID}, extraRooms...)...)
		current, err := s.activeBooking(ctx, bookingID)
		if err != nil {
			unlock()
			return domain.Booking{}, nil, err
		}
		if current.RoomID == booking.RoomID {
			return current, unlock, nil
		}
		unlock()
		if err := ctx.Err(); err != nil {
			return domain.Booking{}, nil, err
		}
	}
}
