package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrInUse is returned when a delete is blocked by rows that still reference the record.
var ErrInUse = errors.New("record is referenced")

// filterBuilder accumulates positional WHERE conditions for list queries.
type filterBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends a condition; every %d verb in expr refers to the next placeholder index.
func (b *filterBuilder) add(expr string, value interface{}) {
	n := len(b.args) + 1
	verbs := strings.Count(expr, "%d")
	indexes := make([]interface{}, verbs)
	for i := range indexes {
		indexes[i] = n
	}
	b.conditions = append(b.conditions, fmt.Sprintf(expr, indexes...))
	b.args = append(b.args, value)
}

// raw appends a condition that takes no argument.
func (b *filterBuilder) raw(expr string) {
	b.conditions = append(b.conditions, expr)
}

// apply appends the accumulated conditions to a "... WHERE 1=1" base clause.
func (b *filterBuilder) apply(base string) string {
	if len(b.conditions) == 0 {
		return base
	}
	return base + " AND " + strings.Join(b.conditions, " AND ")
}

// orderClause maps a requested sort key onto an allowed column and normalises direction.
func orderClause(sortBy, sortOrder, fallback string, allowed map[string]string) (string, string) {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[fallback]
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return column, order
}

// pageWindow returns LIMIT and OFFSET for 1-based pages of at most 100 rows.
func pageWindow(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23503"
}
