package scheduling

import "context"

// Booking is a persisted or planned schedule entry as seen by the engine.
type Booking struct {
	EntryID   string
	GroupID   string
	TeacherID string
	RoomID    string
	TermID    string
	Slot      Slot
}

// Candidate is a proposed placement awaiting validation.
type Candidate struct {
	TeacherID string
	RoomID    string
	GroupID   string
	TermID    string
	Slot      Slot
}

// Source answers the two questions the validator needs about existing entries.
// Implementations must skip the entry whose id equals excludeID when it is non-empty.
type Source interface {
	// Overlapping returns entries on slot.Weekday overlapping slot that use teacherID or roomID.
	Overlapping(ctx context.Context, slot Slot, teacherID, roomID, excludeID string) ([]Booking, error)
	// TeacherMinutes sums scheduled minutes for the teacher, scoped to termID when non-empty.
	TeacherMinutes(ctx context.Context, teacherID, termID, excludeID string) (int, error)
}

// TeacherLoad returns the weekly hours the teacher is booked for.
func TeacherLoad(ctx context.Context, src Source, teacherID, termID, excludeID string) (float64, error) {
	minutes, err := src.TeacherMinutes(ctx, teacherID, termID, excludeID)
	if err != nil {
		return 0, err
	}
	return float64(minutes) / 60, nil
}
