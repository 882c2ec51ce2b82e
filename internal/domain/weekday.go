package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used for booking and period dates.
const DateLayout = "2006-01-02"

// Weekday numbers days Monday=1 through Sunday=7. Zero means unset.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Valid reports whether the weekday lies in 1..7.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// String returns the English day name.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// WeekdayOf converts the platform weekday, where Sunday is 0, to the
// Monday=1..Sunday=7 numbering.
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// ParseDate parses an ISO calendar date as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// WeekdayOfDate returns the weekday for an ISO date.
func WeekdayOfDate(value string) (Weekday, error) {
	t, err := ParseDate(value)
	if err != nil {
		return 0, err
	}
	return WeekdayOf(t), nil
}
