package scheduling

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoUnscheduledGroups = errors.New("no unscheduled groups in term")
	ErrNoActiveTeachers    = errors.New("no active teachers")
	ErrNoActiveRooms       = errors.New("no active rooms")
)

// ConflictError reports every teacher and room clash for a candidate.
type ConflictError struct {
	Kinds   []ConflictKind
	Clashes []Clash
}

func (e *ConflictError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = string(k)
	}
	return "schedule conflict: " + strings.Join(names, ", ")
}

// Has reports whether the given kind is among the conflicts.
func (e *ConflictError) Has(kind ConflictKind) bool {
	for _, k := range e.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// LoadExceededError reports the weekly hours that would exceed the teacher's ceiling.
type LoadExceededError struct {
	Current   float64 `json:"current"`
	Projected float64 `json:"projected"`
	Max       float64 `json:"max"`
}

func (e *LoadExceededError) Error() string {
	return fmt.Sprintf("weekly load %.2fh would exceed maximum %.2fh (current %.2fh)", e.Projected, e.Max, e.Current)
}

// AvailabilityError reports a slot outside the teacher's declared windows.
type AvailabilityError struct {
	TeacherID string
	Slot      Slot
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("teacher %s is not available on %s", e.TeacherID, e.Slot)
}

// IsRejection reports whether err is one of the validator outcomes rather than an infrastructure failure.
func IsRejection(err error) bool {
	var (
		conflict *ConflictError
		load     *LoadExceededError
		avail    *AvailabilityError
	)
	return errors.Is(err, ErrInvalidInterval) ||
		errors.As(err, &conflict) ||
		errors.As(err, &load) ||
		errors.As(err, &avail)
}
