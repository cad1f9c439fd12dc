package models

import "time"

// ReportRange bounds a dated report. Nil ends are open.
type ReportRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// TeacherAttendanceReport lists a teacher's records together with their totals.
type TeacherAttendanceReport struct {
	TeacherID string             `json:"teacher_id"`
	Range     ReportRange        `json:"range"`
	Stats     AttendanceStats    `json:"stats"`
	Records   []AttendanceDetail `json:"records"`
}

// TeacherLoadReport lists booked hours of every active teacher for a term.
type TeacherLoadReport struct {
	TermID     string        `json:"term_id,omitempty"`
	Teachers   []TeacherLoad `json:"teachers"`
	Overloaded int           `json:"overloaded"`
}

// RoomOccupancyReport lists weekly usage of every active room for a term.
type RoomOccupancyReport struct {
	TermID      string          `json:"term_id,omitempty"`
	WindowHours float64         `json:"window_hours"`
	Rooms       []RoomOccupancy `json:"rooms"`
}
