package scheduling

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// GroupRef identifies a group awaiting placement.
type GroupRef struct {
	ID     string
	TermID string
	Label  string
}

// RoomRef is a room the engine may assign.
type RoomRef struct {
	ID       string
	Capacity int
}

// Plan is the result of an assignment batch.
type Plan struct {
	Placed []Booking
	Failed []GroupRef
}

// Engine places one weekly slot per group using first-fit over a fixed grid.
type Engine struct {
	Weekdays   []Weekday
	Blocks     []Interval
	DefaultMax float64
	NewID      func() string
}

// DefaultBlocks are the two-hour teaching blocks between 08:00 and 20:00.
func DefaultBlocks() []Interval {
	return []Interval{
		{Start: At(8, 0), End: At(10, 0)},
		{Start: At(10, 0), End: At(12, 0)},
		{Start: At(14, 0), End: At(16, 0)},
		{Start: At(16, 0), End: At(18, 0)},
		{Start: At(18, 0), End: At(20, 0)},
	}
}

// NewEngine returns an engine over Monday to Friday and the default blocks.
func NewEngine(newID func() string, defaultMax float64) *Engine {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{
		Weekdays:   []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday},
		Blocks:     DefaultBlocks(),
		DefaultMax: defaultMax,
		NewID:      newID,
	}
}

// Assign tries weekday, then block, then teacher (input order), then room (largest first)
// for each group and keeps the first candidate the validator accepts. Placements are added
// to the ledger so later groups see them.
func (e *Engine) Assign(ctx context.Context, ledger *Ledger, groups []GroupRef, teachers []TeacherProfile, rooms []RoomRef) (*Plan, error) {
	switch {
	case len(groups) == 0:
		return nil, ErrNoUnscheduledGroups
	case len(teachers) == 0:
		return nil, ErrNoActiveTeachers
	case len(rooms) == 0:
		return nil, ErrNoActiveRooms
	}

	ordered := append([]RoomRef{}, rooms...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Capacity > ordered[j].Capacity })

	validator := NewValidator(ledger, e.DefaultMax)
	plan := &Plan{}
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		booking, ok, err := e.place(ctx, validator, group, teachers, ordered)
		if err != nil {
			return nil, err
		}
		if !ok {
			plan.Failed = append(plan.Failed, group)
			continue
		}
		ledger.Add(booking)
		plan.Placed = append(plan.Placed, booking)
	}
	return plan, nil
}

func (e *Engine) place(ctx context.Context, v *Validator, group GroupRef, teachers []TeacherProfile, rooms []RoomRef) (Booking, bool, error) {
	for _, day := range e.Weekdays {
		for _, block := range e.Blocks {
			slot := Slot{Weekday: day, Interval: block}
			for _, teacher := range teachers {
				for _, room := range rooms {
					candidate := Candidate{TeacherID: teacher.ID, RoomID: room.ID, GroupID: group.ID, TermID: group.TermID, Slot: slot}
					err := v.Validate(ctx, teacher, candidate, "")
					if err == nil {
						return Booking{
							EntryID:   e.NewID(),
							GroupID:   group.ID,
							TeacherID: teacher.ID,
							RoomID:    room.ID,
							TermID:    group.TermID,
							Slot:      slot,
						}, true, nil
					}
					if !IsRejection(err) {
						return Booking{}, false, err
					}
				}
			}
		}
	}
	return Booking{}, false, nil
}
