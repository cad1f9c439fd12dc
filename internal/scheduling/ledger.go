package scheduling

import "context"

// Ledger is an in-memory Source over a snapshot of bookings. Bookings added during a
// batch become visible to later checks in the same batch.
type Ledger struct {
	bookings []Booking
}

// NewLedger copies the snapshot into a new ledger.
func NewLedger(snapshot []Booking) *Ledger {
	return &Ledger{bookings: append([]Booking{}, snapshot...)}
}

// Add records a booking.
func (l *Ledger) Add(b Booking) {
	l.bookings = append(l.bookings, b)
}

// Bookings returns a copy of everything in the ledger.
func (l *Ledger) Bookings() []Booking {
	return append([]Booking{}, l.bookings...)
}

// Overlapping implements Source.
func (l *Ledger) Overlapping(_ context.Context, slot Slot, teacherID, roomID, excludeID string) ([]Booking, error) {
	var out []Booking
	for _, b := range l.bookings {
		if excludeID != "" && b.EntryID == excludeID {
			continue
		}
		if b.TeacherID != teacherID && b.RoomID != roomID {
			continue
		}
		if b.Slot.Overlaps(slot) {
			out = append(out, b)
		}
	}
	return out, nil
}

// TeacherMinutes implements Source.
func (l *Ledger) TeacherMinutes(_ context.Context, teacherID, termID, excludeID string) (int, error) {
	total := 0
	for _, b := range l.bookings {
		if b.TeacherID != teacherID {
			continue
		}
		if excludeID != "" && b.EntryID == excludeID {
			continue
		}
		if termID != "" && b.TermID != termID {
			continue
		}
		total += b.Slot.Minutes()
	}
	return total, nil
}
