package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/domain"
)

var (
	hallCounter    uint64
	roomCounter    uint64
	bookingCounter uint64
	periodCounter  uint64
)

// referenceTime is a Monday so weekday based fixtures line up with it.
var referenceTime = time.Date(2024, time.March, 11, 9, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Hall fixtures -----------------------------

// HallFixture represents a deterministic lecture hall record.
type HallFixture struct {
	ID        string
	Name      string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HallOption configures the generated hall fixture.
type HallOption func(*HallFixture)

// NewHallFixture returns a deterministic hall fixture with optional overrides.
func NewHallFixture(opts ...HallOption) HallFixture {
	idx := atomic.AddUint64(&hallCounter, 1)
	fixture := HallFixture{
		ID:        fmt.Sprintf("hall-%03d", idx),
		Name:      fmt.Sprintf("Hall %03d", idx),
		Location:  "Main Campus",
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithHallID overrides the generated hall ID.
func WithHallID(id string) HallOption {
	return func(f *HallFixture) {
		f.ID = id
	}
}

// WithHallName overrides the generated hall name.
func WithHallName(name string) HallOption {
	return func(f *HallFixture) {
		f.Name = name
	}
}

// Domain returns the fixture as a domain.LectureHall value.
func (f HallFixture) Domain() domain.LectureHall {
	return domain.LectureHall{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.HallInput.
func (f HallFixture) Input() application.HallInput {
	return application.HallInput{Name: f.Name, Location: f.Location}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID             string
	HallID         string
	Number         string
	Capacity       int
	WorkingSockets int
	HasProjector   bool
	HasMicSpeaker  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		ID:             fmt.Sprintf("room-%03d", idx),
		HallID:         "hall-001",
		Number:         fmt.Sprintf("R%03d", idx),
		Capacity:       int(30 + 10*(idx%5)),
		WorkingSockets: 4,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomHall places the room in hallID.
func WithRoomHall(hallID string) RoomOption {
	return func(f *RoomFixture) {
		f.HallID = hallID
	}
}

// WithRoomNumber overrides the generated room number.
func WithRoomNumber(number string) RoomOption {
	return func(f *RoomFixture) {
		f.Number = number
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomEquipment sets the projector and microphone flags.
func WithRoomEquipment(projector, mic bool) RoomOption {
	return func(f *RoomFixture) {
		f.HasProjector = projector
		f.HasMicSpeaker = mic
	}
}

// Domain returns the fixture as a domain.Room value.
func (f RoomFixture) Domain() domain.Room {
	return domain.Room{
		ID:             f.ID,
		HallID:         f.HallID,
		Number:         f.Number,
		Capacity:       f.Capacity,
		WorkingSockets: f.WorkingSockets,
		HasProjector:   f.HasProjector,
		HasMicSpeaker:  f.HasMicSpeaker,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		HallID:         f.HallID,
		Number:         f.Number,
		Capacity:       f.Capacity,
		WorkingSockets: f.WorkingSockets,
		HasProjector:   f.HasProjector,
		HasMicSpeaker:  f.HasMicSpeaker,
	}
}

// --------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic booking. By default it is an
// active permanent class on Monday from 09:00 to 10:00.
type BookingFixture struct {
	ID                 string
	Type               domain.BookingType
	RoomID             string
	HallID             string
	DayOfWeek          domain.Weekday
	Date               string
	StartTime          string
	EndTime            string
	CourseName         string
	Title              string
	CourseCode         string
	IndexPrefix        string
	StaffID            string
	StaffName          string
	IsActive           bool
	TemporaryFreeDates []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking fixture with optional overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		ID:          fmt.Sprintf("booking-%03d", idx),
		Type:        domain.BookingPermanent,
		RoomID:      "room-001",
		HallID:      "hall-001",
		DayOfWeek:   domain.Monday,
		StartTime:   "09:00",
		EndTime:     "10:00",
		CourseName:  fmt.Sprintf("Course %03d", idx),
		CourseCode:  fmt.Sprintf("CS%03d", idx),
		IndexPrefix: "CS/ALG/01",
		StaffID:     "staff-001",
		StaffName:   "Dr. Staff",
		IsActive:    true,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingRoom places the booking in roomID of hallID.
func WithBookingRoom(roomID, hallID string) BookingOption {
	return func(f *BookingFixture) {
		f.RoomID = roomID
		f.HallID = hallID
	}
}

// WithBookingDay makes the booking a permanent class on weekday day (1..7).
func WithBookingDay(day int) BookingOption {
	return func(f *BookingFixture) {
		f.Type = domain.BookingPermanent
		f.DayOfWeek = domain.Weekday(day)
		f.Date = ""
	}
}

// WithBookingEventDate makes the booking a one-off event on date.
func WithBookingEventDate(date string) BookingOption {
	return func(f *BookingFixture) {
		f.Type = domain.BookingEvent
		f.Date = date
		f.DayOfWeek = 0
		f.Title = f.CourseName
		f.CourseName = ""
		f.IndexPrefix = ""
	}
}

// WithBookingTimes overrides the start and end times.
func WithBookingTimes(start, end string) BookingOption {
	return func(f *BookingFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithBookingStaff sets the staff member.
func WithBookingStaff(id, name string) BookingOption {
	return func(f *BookingFixture) {
		f.StaffID = id
		f.StaffName = name
	}
}

// WithBookingIndexPrefix overrides the index prefix.
func WithBookingIndexPrefix(prefix string) BookingOption {
	return func(f *BookingFixture) {
		f.IndexPrefix = prefix
	}
}

// WithBookingFreeDates marks dates on which the class does not meet.
func WithBookingFreeDates(dates ...string) BookingOption {
	return func(f *BookingFixture) {
		f.TemporaryFreeDates = append([]string(nil), dates...)
	}
}

// WithBookingInactive marks the booking as deleted.
func WithBookingInactive() BookingOption {
	return func(f *BookingFixture) {
		f.IsActive = false
	}
}

// Domain returns the fixture as a domain.Booking value.
func (f BookingFixture) Domain() domain.Booking {
	return domain.Booking{
		ID:                 f.ID,
		Type:               f.Type,
		RoomID:             f.RoomID,
		HallID:             f.HallID,
		DayOfWeek:          f.DayOfWeek,
		Date:               f.Date,
		StartTime:          f.StartTime,
		EndTime:            f.EndTime,
		CourseName:         f.CourseName,
		Title:              f.Title,
		CourseCode:         f.CourseCode,
		IndexPrefix:        f.IndexPrefix,
		StaffID:            f.StaffID,
		StaffName:          f.StaffName,
		IsActive:           f.IsActive,
		TemporaryFreeDates: append([]string(nil), f.TemporaryFreeDates...),
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Draft returns the scheduling fields of the fixture.
func (f BookingFixture) Draft() domain.BookingDraft {
	return f.Domain().Draft()
}

// Input returns the fixture as an application.BookingInput.
func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		Type:        f.Type,
		RoomID:      f.RoomID,
		DayOfWeek:   f.DayOfWeek,
		Date:        f.Date,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		CourseName:  f.CourseName,
		Title:       f.Title,
		CourseCode:  f.CourseCode,
		IndexPrefix: f.IndexPrefix,
		StaffID:     f.StaffID,
		StaffName:   f.StaffName,
	}
}

// ---------------------- Unavailability fixtures --------------------------

// PeriodFixture represents a deterministic unavailability period. By default
// it closes the room for maintenance on the reference date, 12:00 to 13:00.
type PeriodFixture struct {
	ID            string
	HallID        string
	RoomID        string
	Type          domain.UnavailabilityType
	Date          string
	DayOfWeek     domain.Weekday
	StartTime     string
	EndTime       string
	Reason        domain.UnavailabilityReason
	CustomMessage string
	CreatedAt     time.Time
}

// PeriodOption configures the generated period fixture.
type PeriodOption func(*PeriodFixture)

// NewPeriodFixture returns a deterministic period fixture with optional overrides.
func NewPeriodFixture(opts ...PeriodOption) PeriodFixture {
	idx := atomic.AddUint64(&periodCounter, 1)
	fixture := PeriodFixture{
		ID:        fmt.Sprintf("period-%03d", idx),
		HallID:    "hall-001",
		RoomID:    "room-001",
		Type:      domain.UnavailabilityDate,
		Date:      referenceTime.Format(domain.DateLayout),
		StartTime: "12:00",
		EndTime:   "13:00",
		Reason:    domain.ReasonMaintenance,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPeriodID overrides the generated period ID.
func WithPeriodID(id string) PeriodOption {
	return func(f *PeriodFixture) {
		f.ID = id
	}
}

// WithPeriodRoom places the period in roomID of hallID.
func WithPeriodRoom(roomID, hallID string) PeriodOption {
	return func(f *PeriodFixture) {
		f.RoomID = roomID
		f.HallID = hallID
	}
}

// WithPeriodDate makes the period a dated closure.
func WithPeriodDate(date string) PeriodOption {
	return func(f *PeriodFixture) {
		f.Type = domain.UnavailabilityDate
		f.Date = date
		f.DayOfWeek = 0
	}
}

// WithPeriodRecurring makes the period a weekly closure on day (1..7).
func WithPeriodRecurring(day int) PeriodOption {
	return func(f *PeriodFixture) {
		f.Type = domain.UnavailabilityRecurring
		f.DayOfWeek = domain.Weekday(day)
		f.Date = ""
	}
}

// WithPeriodTimes overrides the start and end times.
func WithPeriodTimes(start, end string) PeriodOption {
	return func(f *PeriodFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithPeriodReason sets the reason and optional custom message.
func WithPeriodReason(reason domain.UnavailabilityReason, message string) PeriodOption {
	return func(f *PeriodFixture) {
		f.Reason = reason
		f.CustomMessage = message
	}
}

// Domain returns the fixture as a domain.UnavailabilityPeriod value.
func (f PeriodFixture) Domain() domain.UnavailabilityPeriod {
	return domain.UnavailabilityPeriod{
		ID:            f.ID,
		HallID:        f.HallID,
		RoomID:        f.RoomID,
		Type:          f.Type,
		Date:          f.Date,
		DayOfWeek:     f.DayOfWeek,
		StartTime:     f.StartTime,
		EndTime:       f.EndTime,
		Reason:        f.Reason,
		CustomMessage: f.CustomMessage,
		CreatedAt:     f.CreatedAt,
	}
}

// Input returns the fixture as an application.PeriodInput.
func (f PeriodFixture) Input() application.PeriodInput {
	return application.PeriodInput{
		RoomID:        f.RoomID,
		Type:          f.Type,
		Date:          f.Date,
		DayOfWeek:     f.DayOfWeek,
		StartTime:     f.StartTime,
		EndTime:       f.EndTime,
		Reason:        f.Reason,
		CustomMessage: f.CustomMessage,
	}
}
