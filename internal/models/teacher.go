package models

import (
	"time"

	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
)

// Teacher represents an instructor who can be scheduled.
type Teacher struct {
	ID             string                  `db:"id" json:"id"`
	UserID         *string                 `db:"user_id" json:"user_id,omitempty"`
	EmployeeCode   string                  `db:"employee_code" json:"employee_code"`
	Email          string                  `db:"email" json:"email"`
	FullName       string                  `db:"full_name" json:"full_name"`
	Phone          *string                 `db:"phone" json:"phone,omitempty"`
	Specialty      *string                 `db:"specialty" json:"specialty,omitempty"`
	AcademicDegree *string                 `db:"academic_degree" json:"academic_degree,omitempty"`
	MaxWeeklyHours float64                 `db:"max_weekly_hours" json:"max_weekly_hours"`
	Availability   scheduling.Availability `db:"availability" json:"availability"`
	Active         bool                    `db:"active" json:"active"`
	CreatedAt      time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time               `db:"updated_at" json:"updated_at"`
}

// Profile projects the scheduling constraints of the teacher.
func (t Teacher) Profile() scheduling.TeacherProfile {
	return scheduling.TeacherProfile{ID: t.ID, MaxWeeklyHours: t.MaxWeeklyHours, Availability: t.Availability}
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Specialty string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TeacherLoad summarises booked hours against the weekly ceiling.
type TeacherLoad struct {
	TeacherID  string  `db:"teacher_id" json:"teacher_id"`
	FullName   string  `db:"full_name" json:"full_name"`
	TermID     string  `db:"-" json:"term_id,omitempty"`
	Entries    int     `db:"entries" json:"entries"`
	Hours      float64 `db:"hours" json:"hours"`
	MaxHours   float64 `db:"max_hours" json:"max_hours"`
	Percent    float64 `db:"-" json:"percent"`
	Overloaded bool    `db:"-" json:"overloaded"`
}

// Finalize derives the percentage and overload flag.
func (l *TeacherLoad) Finalize(defaultMax float64) {
	if l.MaxHours <= 0 {
		l.MaxHours = defaultMax
	}
	if l.MaxHours > 0 {
		l.Percent = roundTo(l.Hours/l.MaxHours*100, 2)
	}
	l.Overloaded = l.Hours > l.MaxHours
}
