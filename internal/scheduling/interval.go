package scheduling

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval is returned when an interval does not start strictly before it ends.
var ErrInvalidInterval = errors.New("interval start must be before end")

// Weekday numbers days Monday (1) through Saturday (6).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Valid reports whether d is a teaching day.
func (d Weekday) Valid() bool { return d >= Monday && d <= Saturday }

// String returns the English day name.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Interval is the half-open range [Start, End) within one day.
type Interval struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// NewInterval validates and builds an interval.
func NewInterval(start, end Clock) (Interval, error) {
	if !start.Valid() || !end.Valid() || start >= end {
		return Interval{}, fmt.Errorf("%w: %s-%s", ErrInvalidInterval, start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether the two intervals share any instant. Touching endpoints do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Contains reports whether other lies entirely inside i.
func (i Interval) Contains(other Interval) bool {
	return other.Start >= i.Start && other.End <= i.End
}

// Minutes returns the interval length.
func (i Interval) Minutes() int { return int(i.End - i.Start) }

// Hours returns the interval length in hours.
func (i Interval) Hours() float64 { return float64(i.Minutes()) / 60 }

func (i Interval) String() string { return i.Start.String() + "-" + i.End.String() }

// Slot is an interval placed on a weekday.
type Slot struct {
	Weekday Weekday `json:"weekday"`
	Interval
}

// NewSlot validates weekday and interval together.
func NewSlot(day Weekday, start, end Clock) (Slot, error) {
	iv, err := NewInterval(start, end)
	if err != nil {
		return Slot{}, err
	}
	if !day.Valid() {
		return Slot{}, fmt.Errorf("weekday %d out of range 1-6", int(day))
	}
	return Slot{Weekday: day, Interval: iv}, nil
}

// Overlaps reports whether two slots fall on the same day and overlap in time.
func (s Slot) Overlaps(other Slot) bool {
	return s.Weekday == other.Weekday && s.Interval.Overlaps(other.Interval)
}

func (s Slot) String() string { return s.Weekday.String() + " " + s.Interval.String() }
