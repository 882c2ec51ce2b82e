package application

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/events"
	"github.com/example/lecture-room-booking/internal/persistence"
)

// memoryRepos implements every persistence repository over maps. Errors set
// on the struct are returned by the matching calls.
type memoryRepos struct {
	mu       sync.Mutex
	halls    map[string]domain.LectureHall
	rooms    map[string]domain.Room
	bookings map[string]domain.Booking
	periods  map[string]domain.UnavailabilityPeriod

	listBookingsErr error
	createErr       error
	updateErr       error

	listBookingsCalls int
	listPeriodsCalls  int
}

func newMemoryRepos() *memoryRepos {
	return &memoryRepos{
		halls:    make(map[string]domain.LectureHall),
		rooms:    make(map[string]domain.Room),
		bookings: make(map[string]domain.Booking),
		periods:  make(map[string]domain.UnavailabilityPeriod),
	}
}

func (m *memoryRepos) seedHall(h domain.LectureHall) {
	m.halls[h.ID] = h
}

func (m *memoryRepos) seedRoom(r domain.Room) {
	m.rooms[r.ID] = r
}

func (m *memoryRepos) seedBooking(b domain.Booking) {
	b.TemporaryFreeDates = slices.Clone(b.TemporaryFreeDates)
	m.bookings[b.ID] = b
}

func (m *memoryRepos) seedPeriod(p domain.UnavailabilityPeriod) {
	m.periods[p.ID] = p
}

func (m *memoryRepos) CreateHall(ctx context.Context, hall domain.LectureHall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.halls {
		if existing.Name == hall.Name {
			return persistence.ErrDuplicate
		}
	}
	m.halls[hall.ID] = hall
	return nil
}

func (m *memoryRepos) UpdateHall(ctx context.Context, hall domain.LectureHall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.halls[hall.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.halls[hall.ID] = hall
	return nil
}

func (m *memoryRepos) GetHall(ctx context.Context, id string) (domain.LectureHall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hall, ok := m.halls[id]
	if !ok {
		return domain.LectureHall{}, persistence.ErrNotFound
	}
	return hall, nil
}

func (m *memoryRepos) ListHalls(ctx context.Context) ([]domain.LectureHall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.LectureHall, 0, len(m.halls))
	for _, h := range m.halls {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepos) DeleteHall(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.halls[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.halls, id)
	return nil
}

func (m *memoryRepos) CreateRoom(ctx context.Context, room domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.rooms[room.ID] = room
	return nil
}

func (m *memoryRepos) UpdateRoom(ctx context.Context, room domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.rooms[room.ID] = room
	return nil
}

func (m *memoryRepos) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return domain.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (m *memoryRepos) ListRooms(ctx context.Context) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepos) ListRoomsByHall(ctx context.Context, hallID string) ([]domain.Room, error) {
	all, _ := m.ListRooms(ctx)
	out := make([]domain.Room, 0, len(all))
	for _, r := range all {
		if r.HallID == hallID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memoryRepos) DeleteRoom(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.rooms, id)
	return nil
}

func (m *memoryRepos) CreateBooking(ctx context.Context, booking domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.bookings[booking.ID]; ok {
		return persistence.ErrDuplicate
	}
	booking.TemporaryFreeDates = slices.Clone(booking.TemporaryFreeDates)
	m.bookings[booking.ID] = booking
	return nil
}

func (m *memoryRepos) UpdateBooking(ctx context.Context, booking domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.bookings[booking.ID]; !ok {
		return persistence.ErrNotFound
	}
	booking.TemporaryFreeDates = slices.Clone(booking.TemporaryFreeDates)
	m.bookings[booking.ID] = booking
	return nil
}

func (m *memoryRepos) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, persistence.ErrNotFound
	}
	b.TemporaryFreeDates = slices.Clone(b.TemporaryFreeDates)
	return b, nil
}

func (m *memoryRepos) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listBookingsCalls++
	if m.listBookingsErr != nil {
		return nil, m.listBookingsErr
	}
	out := make([]domain.Booking, 0)
	for _, b := range m.bookings {
		if !b.IsActive && !filter.IncludeInactive {
			continue
		}
		if !matchesFilter(b, filter) {
			continue
		}
		b.TemporaryFreeDates = slices.Clone(b.TemporaryFreeDates)
		out = append(out, b)
	}
	sortBookings(out)
	return out, nil
}

func (m *memoryRepos) ListBookingsForDate(ctx context.Context, date string, weekday domain.Weekday) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Booking, 0)
	for _, b := range m.bookings {
		if !b.IsActive {
			continue
		}
		if (b.Type == domain.BookingPermanent && b.DayOfWeek == weekday) || (b.Type == domain.BookingEvent && b.Date == date) {
			b.TemporaryFreeDates = slices.Clone(b.TemporaryFreeDates)
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (m *memoryRepos) DeactivateBooking(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return persistence.ErrNotFound
	}
	b.IsActive = false
	b.UpdatedAt = at
	m.bookings[id] = b
	return nil
}

func (m *memoryRepos) CreatePeriod(ctx context.Context, period domain.UnavailabilityPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.periods[period.ID] = period
	return nil
}

func (m *memoryRepos) GetPeriod(ctx context.Context, id string) (domain.UnavailabilityPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok {
		return domain.UnavailabilityPeriod{}, persistence.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepos) ListPeriods(ctx context.Context, filter persistence.UnavailabilityFilter) ([]domain.UnavailabilityPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listPeriodsCalls++
	out := make([]domain.UnavailabilityPeriod, 0)
	for _, p := range m.periods {
		if filter.RoomID != "" && p.RoomID != filter.RoomID {
			continue
		}
		if len(filter.RoomIDs) > 0 && !slices.Contains(filter.RoomIDs, p.RoomID) {
			continue
		}
		if filter.HallID != "" && p.HallID != filter.HallID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryRepos) DeletePeriod(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.periods[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.periods, id)
	return nil
}

func sortBookings(bookings []domain.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].StartTime != bookings[j].StartTime {
			return bookings[i].StartTime < bookings[j].StartTime
		}
		return bookings[i].ID < bookings[j].ID
	})
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func fixedNow() func() time.Time {
	now := time.Date(2024, time.March, 11, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return now }
}

// catalogFixture seeds one hall with rooms R101 (cap 40) and R102 (cap 80,
// projector), and a second hall with R201 (cap 120).
func catalogFixture() *memoryRepos {
	repos := newMemoryRepos()
	repos.seedHall(domain.LectureHall{ID: "hall-a", Name: "Science Block"})
	repos.seedHall(domain.LectureHall{ID: "hall-b", Name: "Arts Block"})
	repos.seedRoom(domain.Room{ID: "room-101", HallID: "hall-a", Number: "R101", Capacity: 40})
	repos.seedRoom(domain.Room{ID: "room-102", HallID: "hall-a", Number: "R102", Capacity: 80, HasProjector: true})
	repos.seedRoom(domain.Room{ID: "room-201", HallID: "hall-b", Number: "R201", Capacity: 120})
	return repos
}
