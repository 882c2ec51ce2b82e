// Package domain defines the records exchanged between storage, the booking
// engine and presentation.
package domain

import (
	"slices"
	"strings"
	"time"
)

// BookingType distinguishes weekly classes from one-off events.
type BookingType string

const (
	// BookingPermanent recurs every week on DayOfWeek.
	BookingPermanent BookingType = "permanent"
	// BookingEvent occurs once on Date.
	BookingEvent BookingType = "event"
)

// Valid reports whether the type is known.
func (t BookingType) Valid() bool {
	return t == BookingPermanent || t == BookingEvent
}

// UnavailabilityType distinguishes dated closures from weekly ones.
type UnavailabilityType string

const (
	UnavailabilityDate      UnavailabilityType = "date"
	UnavailabilityRecurring UnavailabilityType = "recurring"
)

// Valid reports whether the type is known.
func (t UnavailabilityType) Valid() bool {
	return t == UnavailabilityDate || t == UnavailabilityRecurring
}

// UnavailabilityReason is the administrator supplied cause of a closure.
type UnavailabilityReason string

const (
	ReasonMaintenance  UnavailabilityReason = "maintenance"
	ReasonCleaning     UnavailabilityReason = "cleaning"
	ReasonStudentStudy UnavailabilityReason = "student_study"
	ReasonClosed       UnavailabilityReason = "closed"
)

// Valid reports whether the reason is known.
func (r UnavailabilityReason) Valid() bool {
	switch r {
	case ReasonMaintenance, ReasonCleaning, ReasonStudentStudy, ReasonClosed:
		return true
	}
	return false
}

// Label returns the display text for the reason.
func (r UnavailabilityReason) Label() string {
	switch r {
	case ReasonMaintenance:
		return "Maintenance"
	case ReasonCleaning:
		return "Cleaning"
	case ReasonStudentStudy:
		return "Free for Student Study"
	case ReasonClosed:
		return "Closed"
	case "":
		return "Unavailable"
	}
	return string(r)
}

// LectureHall groups rooms in one building.
type LectureHall struct {
	ID        string
	Name      string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Room is a bookable space inside a hall.
type Room struct {
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

// Booking is a persisted permanent class or event.
//
// RoomName and HallName are copies taken at write time for display and are
// never used to decide conflicts or availability.
type Booking struct {
	ID                 string
	Type               BookingType
	RoomID             string
	HallID             string
	RoomName           string
	HallName           string
	StartTime          string
	EndTime            string
	CourseName         string
	Title              string
	CourseCode         string
	IndexPrefix        string
	StaffID            string
	StaffName          string
	IsActive           bool
	DayOfWeek          Weekday
	Date               string
	TemporaryFreeDates []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsTemporarilyFree reports whether the weekly occurrence on date is suspended.
func (b Booking) IsTemporarilyFree(date string) bool {
	if b.Type != BookingPermanent || date == "" {
		return false
	}
	return slices.Contains(b.TemporaryFreeDates, date)
}

// DisplayName returns the course name, falling back to the title.
func (b Booking) DisplayName() string {
	if name := strings.TrimSpace(b.CourseName); name != "" {
		return name
	}
	return strings.TrimSpace(b.Title)
}

// Draft returns the scheduling fields of the booking.
func (b Booking) Draft() BookingDraft {
	return BookingDraft{
		Type:      b.Type,
		RoomID:    b.RoomID,
		DayOfWeek: b.DayOfWeek,
		Date:      b.Date,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
	}
}

// BookingDraft is a proposed booking slot awaiting a conflict check.
type BookingDraft struct {
	Type      BookingType
	RoomID    string
	DayOfWeek Weekday
	Date      string
	StartTime string
	EndTime   string
}

// UnavailabilityPeriod is an administrator declared closure of a room.
type UnavailabilityPeriod struct {
	ID            string
	HallID        string
	RoomID        string
	Type          UnavailabilityType
	Date          string
	DayOfWeek     Weekday
	StartTime     string
	EndTime       string
	Reason        UnavailabilityReason
	CustomMessage string
	CreatedAt     time.Time
}

// Label returns the custom message when present, else the reason label.
func (p UnavailabilityPeriod) Label() string {
	if msg := strings.TrimSpace(p.CustomMessage); msg != "" {
		return msg
	}
	return p.Reason.Label()
}
