package repository

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestFilterBuilderNumbersPlaceholders(t *testing.T) {
	var fb filterBuilder
	fb.add("a = $%d", 1)
	fb.raw("b IS NULL")
	fb.add("(c LIKE $%d OR d LIKE $%d)", "%x%")

	assert.Equal(t, "FROM t WHERE 1=1 AND a = $1 AND b IS NULL AND (c LIKE $2 OR d LIKE $2)", fb.apply("FROM t WHERE 1=1"))
	assert.Equal(t, []interface{}{1, "%x%"}, fb.args)

	var empty filterBuilder
	assert.Equal(t, "FROM t WHERE 1=1", empty.apply("FROM t WHERE 1=1"))
}

func TestOrderClauseAndPageWindow(t *testing.T) {
	allowed := map[string]string{"name": "s.name", "created_at": "s.created_at"}

	column, order := orderClause("name", "asc", "created_at", allowed)
	assert.Equal(t, "s.name", column)
	assert.Equal(t, "ASC", order)

	column, order = orderClause("password; DROP TABLE", "sideways", "created_at", allowed)
	assert.Equal(t, "s.created_at", column)
	assert.Equal(t, "DESC", order)

	limit, offset := pageWindow(0, 500)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)
	limit, offset = pageWindow(3, 25)
	assert.Equal(t, 25, limit)
	assert.Equal(t, 50, offset)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(fmt.Errorf("plain")))
}
