// Package interval implements time-of-day arithmetic for bookings.
//
// Times are "HH:MM" strings on a 24 hour clock and are converted to minutes
// after midnight. Ranges are half-open: a range ending at 10:00 does not
// overlap one starting at 10:00.
package interval

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTimeFormat is returned when a value is not a valid "HH:MM" time.
var ErrInvalidTimeFormat = errors.New("interval: invalid time format")

// MinutesPerDay is the number of minutes in a calendar day.
const MinutesPerDay = 24 * 60

var clockPattern = regexp.MustCompile(`^([0-1]\d|2[0-3]):([0-5]\d)$`)

// Valid reports whether value is a strict "HH:MM" time.
func Valid(value string) bool {
	return clockPattern.MatchString(value)
}

// ToMinutes parses a strict "HH:MM" value into minutes after midnight.
func ToMinutes(value string) (int, error) {
	m := clockPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return hours*60 + minutes, nil
}

// MinutesOrZero is the permissive variant of ToMinutes used by rendering
// paths. It also accepts single digit hours ("9:30") and returns 0 for
// anything it cannot read.
func MinutesOrZero(value string) int {
	if minutes, err := ToMinutes(value); err == nil {
		return minutes
	}
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0
	}
	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hours > 23 {
		return 0
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 || len(mm) != 2 {
		return 0
	}
	return hours*60 + minutes
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// OverlapsClock is Overlaps over strict "HH:MM" values.
func OverlapsClock(aStart, aEnd, bStart, bEnd string) (bool, error) {
	a, err := ParseRange(aStart, aEnd)
	if err != nil {
		return false, err
	}
	b, err := ParseRange(bStart, bEnd)
	if err != nil {
		return false, err
	}
	return a.Overlaps(b), nil
}

// Duration returns end - start in minutes. Ordering is not checked.
func Duration(start, end int) int {
	return end - start
}

// Contains reports whether instant falls in [start, end).
func Contains(start, end, instant int) bool {
	return start <= instant && instant < end
}

// Format renders minutes after midnight as "HH:MM". Values outside a day are
// clamped.
func Format(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > MinutesPerDay {
		minutes = MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Range is a half-open time-of-day range in minutes.
type Range struct {
	Start int
	End   int
}

// ParseRange parses strict start and end values. It does not require
// start < end; use Ordered for that.
func ParseRange(start, end string) (Range, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: s, End: e}, nil
}

// Ordered reports whether the range starts before it ends.
func (r Range) Ordered() bool {
	return r.Start < r.End
}

// Overlaps reports whether the two ranges intersect.
func (r Range) Overlaps(other Range) bool {
	return Overlaps(r.Start, r.End, other.Start, other.End)
}

// Contains reports whether the minute lies inside the range.
func (r Range) Contains(minute int) bool {
	return Contains(r.Start, r.End, minute)
}

// Duration returns the range length in minutes.
func (r Range) Duration() int {
	return Duration(r.Start, r.End)
}

// String renders the range as "HH:MM-HH:MM".
func (r Range) String() string {
	return Format(r.Start) + "-" + Format(r.End)
}
