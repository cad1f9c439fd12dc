package models

import "time"

// Subject is a course in the catalogue.
type Subject struct {
	ID            string    `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	Name          string    `db:"name" json:"name"`
	Abbreviation  string    `db:"abbreviation" json:"abbreviation"`
	TheoryHours   int       `db:"theory_hours" json:"theory_hours"`
	PracticeHours int       `db:"practice_hours" json:"practice_hours"`
	Level         int       `db:"level" json:"level"`
	Semester      int       `db:"semester" json:"semester"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter narrows subject listings.
type SubjectFilter struct {
	Search    string
	Level     int
	Semester  int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
