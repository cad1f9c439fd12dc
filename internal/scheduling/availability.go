package scheduling

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Availability declares when a teacher may be scheduled. The zero value is unrestricted.
// A restricted availability only constrains the weekdays it lists; a listed weekday with
// no windows blocks the whole day.
type Availability struct {
	windows map[Weekday][]Interval
}

// Unrestricted returns an availability that allows every slot.
func Unrestricted() Availability { return Availability{} }

// Restricted returns an availability limited to the given windows.
func Restricted(windows map[Weekday][]Interval) Availability {
	copied := make(map[Weekday][]Interval, len(windows))
	for day, list := range windows {
		copied[day] = append([]Interval{}, list...)
	}
	return Availability{windows: copied}
}

// IsRestricted reports whether any declaration exists.
func (a Availability) IsRestricted() bool { return a.windows != nil }

// Windows returns a copy of the declared windows, or nil when unrestricted.
func (a Availability) Windows() map[Weekday][]Interval {
	if a.windows == nil {
		return nil
	}
	return Restricted(a.windows).windows
}

// Allows reports whether the slot fits completely inside one declared window for its weekday.
func (a Availability) Allows(slot Slot) bool {
	if a.windows == nil {
		return true
	}
	list, declared := a.windows[slot.Weekday]
	if !declared {
		return true
	}
	for _, w := range list {
		if w.Contains(slot.Interval) {
			return true
		}
	}
	return false
}

// Validate checks every window is a proper interval on a valid weekday.
func (a Availability) Validate() error {
	for day, list := range a.windows {
		if !day.Valid() {
			return fmt.Errorf("availability weekday %d out of range 1-6", int(day))
		}
		for _, w := range list {
			if _, err := NewInterval(w.Start, w.End); err != nil {
				return fmt.Errorf("availability %s: %w", day, err)
			}
		}
	}
	return nil
}

// MarshalJSON encodes as {"1":[{"start":"08:00","end":"12:00"}]} or null when unrestricted.
func (a Availability) MarshalJSON() ([]byte, error) {
	if a.windows == nil {
		return []byte("null"), nil
	}
	days := make([]int, 0, len(a.windows))
	for day := range a.windows {
		days = append(days, int(day))
	}
	sort.Ints(days)
	out := make(map[string][]Interval, len(days))
	for _, day := range days {
		list := a.windows[Weekday(day)]
		if list == nil {
			list = []Interval{}
		}
		out[strconv.Itoa(day)] = list
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Availability) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Unrestricted()
		return nil
	}
	var raw map[string][]Interval
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode availability: %w", err)
	}
	windows := make(map[Weekday][]Interval, len(raw))
	for key, list := range raw {
		day, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("availability key %q is not a weekday number", key)
		}
		windows[Weekday(day)] = list
	}
	parsed := Availability{windows: windows}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner for a nullable JSONB column.
func (a *Availability) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = Unrestricted()
		return nil
	case []byte:
		return a.UnmarshalJSON(v)
	case string:
		return a.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into Availability", src)
	}
}

// Value implements driver.Valuer, storing NULL for unrestricted.
func (a Availability) Value() (driver.Value, error) {
	if a.windows == nil {
		return nil, nil
	}
	return a.MarshalJSON()
}
