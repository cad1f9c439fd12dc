package models

import (
	"time"

	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
)

// ScheduleEntry assigns a group to a teacher and room for a weekly slot.
type ScheduleEntry struct {
	ID        string             `db:"id" json:"id"`
	GroupID   string             `db:"group_id" json:"group_id"`
	TeacherID string             `db:"teacher_id" json:"teacher_id"`
	RoomID    string             `db:"room_id" json:"room_id"`
	Weekday   scheduling.Weekday `db:"weekday" json:"weekday"`
	StartTime scheduling.Clock   `db:"start_time" json:"start_time"`
	EndTime   scheduling.Clock   `db:"end_time" json:"end_time"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// Slot returns the weekday and interval of the entry.
func (e ScheduleEntry) Slot() scheduling.Slot {
	return scheduling.Slot{Weekday: e.Weekday, Interval: scheduling.Interval{Start: e.StartTime, End: e.EndTime}}
}

// ScheduleEntryDetail enriches an entry with display names used by timetables and notifications.
type ScheduleEntryDetail struct {
	ScheduleEntry
	TermID        string  `db:"term_id" json:"term_id"`
	GroupNumber   int     `db:"group_number" json:"group_number"`
	SubjectID     string  `db:"subject_id" json:"subject_id"`
	SubjectCode   string  `db:"subject_code" json:"subject_code"`
	SubjectName   string  `db:"subject_name" json:"subject_name"`
	TeacherName   string  `db:"teacher_name" json:"teacher_name"`
	TeacherUserID *string `db:"teacher_user_id" json:"-"`
	RoomCode      string  `db:"room_code" json:"room_code"`
	RoomName      string  `db:"room_name" json:"room_name"`
	RoomBuilding  string  `db:"room_building" json:"room_building"`
}

// Booking converts the entry into the engine view.
func (d ScheduleEntryDetail) Booking() scheduling.Booking {
	return scheduling.Booking{
		EntryID:   d.ID,
		GroupID:   d.GroupID,
		TeacherID: d.TeacherID,
		RoomID:    d.RoomID,
		TermID:    d.TermID,
		Slot:      d.Slot(),
	}
}

// ScheduleFilter narrows schedule listings.
type ScheduleFilter struct {
	TermID    string
	TeacherID string
	RoomID    string
	GroupID   string
	Weekday   int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// WeeklyDay is one column of a weekly timetable.
type WeeklyDay struct {
	Weekday scheduling.Weekday    `json:"weekday"`
	Name    string                `json:"name"`
	Entries []ScheduleEntryDetail `json:"entries"`
}

// WeeklyTimetable groups entries by weekday Monday through Saturday.
type WeeklyTimetable struct {
	TermID string      `json:"term_id,omitempty"`
	Days   []WeeklyDay `json:"days"`
	Total  int         `json:"total"`
}

// BuildWeeklyTimetable buckets ordered entries into the six teaching days.
func BuildWeeklyTimetable(termID string, entries []ScheduleEntryDetail) WeeklyTimetable {
	days := make([]WeeklyDay, 0, 6)
	for d := scheduling.Monday; d <= scheduling.Saturday; d++ {
		days = append(days, WeeklyDay{Weekday: d, Name: d.String(), Entries: []ScheduleEntryDetail{}})
	}
	for _, entry := range entries {
		if entry.Weekday.Valid() {
			idx := int(entry.Weekday) - 1
			days[idx].Entries = append(days[idx].Entries, entry)
		}
	}
	return WeeklyTimetable{TermID: termID, Days: days, Total: len(entries)}
}

// FailedGroup names a group the assignment engine could not place.
type FailedGroup struct {
	GroupID string `json:"group_id"`
	Label   string `json:"label"`
}

// AutoAssignResult summarises an assignment batch.
type AutoAssignResult struct {
	TermID      string          `json:"term_id"`
	Assigned    int             `json:"assigned"`
	Failed      []FailedGroup   `json:"failed"`
	TotalGroups int             `json:"total_groups"`
	Entries     []ScheduleEntry `json:"entries"`
}
