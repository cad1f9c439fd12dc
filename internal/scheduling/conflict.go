package scheduling

import "context"

// ConflictKind names the resource that clashes.
type ConflictKind string

const (
	TeacherConflict ConflictKind = "teacher"
	RoomConflict    ConflictKind = "room"
)

// Clash pairs a conflict kind with the booking that caused it.
type Clash struct {
	Kind    ConflictKind `json:"kind"`
	EntryID string       `json:"entry_id"`
	Slot    Slot         `json:"slot"`
}

// DetectConflicts runs both the teacher and the room check and reports every clash found.
func DetectConflicts(ctx context.Context, src Source, c Candidate, excludeID string) ([]Clash, error) {
	existing, err := src.Overlapping(ctx, c.Slot, c.TeacherID, c.RoomID, excludeID)
	if err != nil {
		return nil, err
	}
	var clashes []Clash
	for _, b := range existing {
		if excludeID != "" && b.EntryID == excludeID {
			continue
		}
		if !b.Slot.Overlaps(c.Slot) {
			continue
		}
		if b.TeacherID == c.TeacherID {
			clashes = append(clashes, Clash{Kind: TeacherConflict, EntryID: b.EntryID, Slot: b.Slot})
		}
		if b.RoomID == c.RoomID {
			clashes = append(clashes, Clash{Kind: RoomConflict, EntryID: b.EntryID, Slot: b.Slot})
		}
	}
	return clashes, nil
}

// Kinds returns the distinct kinds present, teacher before room.
func Kinds(clashes []Clash) []ConflictKind {
	var teacher, room bool
	for _, c := range clashes {
		switch c.Kind {
		case TeacherConflict:
			teacher = true
		case RoomConflict:
			room = true
		}
	}
	kinds := make([]ConflictKind, 0, 2)
	if teacher {
		kinds = append(kinds, TeacherConflict)
	}
	if room {
		kinds = append(kinds, RoomConflict)
	}
	return kinds
}
