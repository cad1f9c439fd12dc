package models

import "time"

// AcademicTerm models a half-year teaching period. At most one term is current.
type AcademicTerm struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Year      int       `db:"year" json:"year"`
	Period    int       `db:"period" json:"period"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TermFilter defines filters supported by list endpoints.
type TermFilter struct {
	Year      int
	Period    int
	IsCurrent *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
