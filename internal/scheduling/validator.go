package scheduling

import (
	"context"
	"fmt"
)

// DefaultMaxWeeklyHours applies when a teacher has no explicit ceiling.
const DefaultMaxWeeklyHours = 40.0

// TeacherProfile carries the per-teacher constraints the validator enforces.
type TeacherProfile struct {
	ID             string
	MaxWeeklyHours float64
	Availability   Availability
}

// Ceiling returns the effective weekly hour limit.
func (t TeacherProfile) Ceiling(fallback float64) float64 {
	if t.MaxWeeklyHours > 0 {
		return t.MaxWeeklyHours
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMaxWeeklyHours
}

// Report is the full outcome of a dry-run check.
type Report struct {
	Valid        bool               `json:"valid"`
	Conflicts    []Clash            `json:"conflicts"`
	Kinds        []ConflictKind     `json:"kinds"`
	Load         *LoadExceededError `json:"load_exceeded,omitempty"`
	Unavailable  bool               `json:"unavailable"`
	CurrentHours float64            `json:"current_hours"`
	MaxHours     float64            `json:"max_hours"`
}

// Validator applies interval, conflict, load and availability rules in that order.
type Validator struct {
	source     Source
	defaultMax float64
}

// NewValidator builds a validator over the given entry source.
func NewValidator(source Source, defaultMax float64) *Validator {
	if defaultMax <= 0 {
		defaultMax = DefaultMaxWeeklyHours
	}
	return &Validator{source: source, defaultMax: defaultMax}
}

// Validate returns nil when the candidate can be placed, otherwise the first failing rule.
func (v *Validator) Validate(ctx context.Context, teacher TeacherProfile, c Candidate, excludeID string) error {
	if _, err := NewSlot(c.Slot.Weekday, c.Slot.Start, c.Slot.End); err != nil {
		return err
	}

	clashes, err := DetectConflicts(ctx, v.source, c, excludeID)
	if err != nil {
		return fmt.Errorf("detect conflicts: %w", err)
	}
	if len(clashes) > 0 {
		return &ConflictError{Kinds: Kinds(clashes), Clashes: clashes}
	}

	loadErr, _, err := v.checkLoad(ctx, teacher, c, excludeID)
	if err != nil {
		return err
	}
	if loadErr != nil {
		return loadErr
	}

	if !teacher.Availability.Allows(c.Slot) {
		return &AvailabilityError{TeacherID: teacher.ID, Slot: c.Slot}
	}
	return nil
}

// Check evaluates every rule without stopping at the first failure.
func (v *Validator) Check(ctx context.Context, teacher TeacherProfile, c Candidate, excludeID string) (*Report, error) {
	if _, err := NewSlot(c.Slot.Weekday, c.Slot.Start, c.Slot.End); err != nil {
		return nil, err
	}
	report := &Report{MaxHours: teacher.Ceiling(v.defaultMax)}

	clashes, err := DetectConflicts(ctx, v.source, c, excludeID)
	if err != nil {
		return nil, fmt.Errorf("detect conflicts: %w", err)
	}
	report.Conflicts = clashes
	report.Kinds = Kinds(clashes)

	loadErr, current, err := v.checkLoad(ctx, teacher, c, excludeID)
	if err != nil {
		return nil, err
	}
	report.Load = loadErr
	report.CurrentHours = current
	report.Unavailable = !teacher.Availability.Allows(c.Slot)
	report.Valid = len(clashes) == 0 && loadErr == nil && !report.Unavailable
	return report, nil
}

func (v *Validator) checkLoad(ctx context.Context, teacher TeacherProfile, c Candidate, excludeID string) (*LoadExceededError, float64, error) {
	current, err := TeacherLoad(ctx, v.source, c.TeacherID, c.TermID, excludeID)
	if err != nil {
		return nil, 0, fmt.Errorf("compute teacher load: %w", err)
	}
	ceiling := teacher.Ceiling(v.defaultMax)
	projected := current + c.Slot.Hours()
	if projected > ceiling {
		return &LoadExceededError{Current: current, Projected: projected, Max: ceiling}, current, nil
	}
	return nil, current, nil
}
