package models

import "time"

// AttendanceStatus is the outcome recorded for a class session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// AttendanceMethod records how a check-in was captured.
type AttendanceMethod string

const (
	MethodManual AttendanceMethod = "manual"
	MethodQR     AttendanceMethod = "qr"
	MethodGeo    AttendanceMethod = "geo"
)

// AttendanceRecord is one teacher check-in for a schedule entry on a date.
type AttendanceRecord struct {
	ID              string           `db:"id" json:"id"`
	ScheduleEntryID string           `db:"schedule_entry_id" json:"schedule_entry_id"`
	TeacherID       string           `db:"teacher_id" json:"teacher_id"`
	Date            time.Time        `db:"date" json:"date"`
	RecordedAt      time.Time        `db:"recorded_at" json:"recorded_at"`
	Status          AttendanceStatus `db:"status" json:"status"`
	Method          AttendanceMethod `db:"method" json:"method"`
	Notes           *string          `db:"notes" json:"notes,omitempty"`
	Latitude        *float64         `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64         `db:"longitude" json:"longitude,omitempty"`
	DistanceMeters  *float64         `db:"distance_meters" json:"distance_meters,omitempty"`
	RecordedBy      *string          `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail joins schedule context onto a record.
type AttendanceDetail struct {
	AttendanceRecord
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	GroupNumber int    `db:"group_number" json:"group_number"`
	RoomName    string `db:"room_name" json:"room_name"`
	Weekday     int    `db:"weekday" json:"weekday"`
}

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	TeacherID       string
	ScheduleEntryID string
	TermID          string
	Status          AttendanceStatus
	Method          AttendanceMethod
	DateFrom        *time.Time
	DateTo          *time.Time
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}

// AttendanceStats counts statuses over a range.
type AttendanceStats struct {
	TeacherID  string  `json:"teacher_id,omitempty"`
	Total      int     `db:"total" json:"total"`
	Present    int     `db:"present" json:"present"`
	Absent     int     `db:"absent" json:"absent"`
	Late       int     `db:"late" json:"late"`
	Excused    int     `db:"excused" json:"excused"`
	Percentage float64 `db:"-" json:"attendance_percentage"`
}

// Finalize computes (present + late) / total as a percentage, or zero without records.
func (s *AttendanceStats) Finalize() {
	if s.Total == 0 {
		s.Percentage = 0
		return
	}
	s.Percentage = roundTo(float64(s.Present+s.Late)/float64(s.Total)*100, 2)
}
