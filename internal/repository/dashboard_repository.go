package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-schedule-api/internal/models"
)

// DashboardRepository runs the aggregate counts behind the admin dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Totals counts active teachers, subjects, active rooms and the groups of termID.
func (r *DashboardRepository) Totals(ctx context.Context, termID string) (*models.DashboardTotals, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM teachers WHERE active = TRUE) AS teachers,
	(SELECT COUNT(*) FROM subjects) AS subjects,
	(SELECT COUNT(*) FROM rooms WHERE active = TRUE) AS rooms,
	(SELECT COUNT(*) FROM course_groups WHERE term_id::text = $1) AS groups`
	var totals models.DashboardTotals
	if err := r.db.GetContext(ctx, &totals, query, termID); err != nil {
		return nil, fmt.Errorf("dashboard totals: %w", err)
	}
	return &totals, nil
}
