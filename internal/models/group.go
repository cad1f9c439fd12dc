package models

import (
	"fmt"
	"time"
)

// Group is a section of a subject offered in a term.
type Group struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TermID    string    `db:"term_id" json:"term_id"`
	Number    int       `db:"number" json:"number"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GroupDetail joins subject and term names onto a group.
type GroupDetail struct {
	Group
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TermName    string `db:"term_name" json:"term_name"`
	Entries     int    `db:"entries" json:"entries"`
}

// Label renders the human name used in reports and assignment results.
func (g GroupDetail) Label() string {
	return fmt.Sprintf("Group %s - %d", g.SubjectName, g.Number)
}

// GroupFilter narrows group listings.
type GroupFilter struct {
	TermID      string
	SubjectID   string
	Unscheduled bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
