package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-schedule-api/internal/models"
)

const termColumns = `id, name, year, period, start_date, end_date, is_current, created_at, updated_at`

// TermRepository handles persistence for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns terms matching provided filters.
func (r *TermRepository) List(ctx context.Context, filter models.TermFilter) ([]models.AcademicTerm, int, error) {
	var fb filterBuilder
	if filter.Year > 0 {
		fb.add("year = $%d", filter.Year)
	}
	if filter.Period > 0 {
		fb.add("period = $%d", filter.Period)
	}
	if filter.IsCurrent != nil {
		fb.add("is_current = $%d", *filter.IsCurrent)
	}
	base := fb.apply("FROM academic_terms WHERE 1=1")

	column, order := orderClause(filter.SortBy, filter.SortOrder, "start_date", map[string]string{
		"name":       "name",
		"year":       "year",
		"start_date": "start_date",
		"end_date":   "end_date",
		"created_at": "created_at",
	})
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", termColumns, base, column, order, limit, offset)
	var terms []models.AcademicTerm
	if err := r.db.SelectContext(ctx, &terms, query, fb.args...); err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), fb.args...); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}
	return terms, total, nil
}

// FindByID loads a term by identifier.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.AcademicTerm, error) {
	query := `SELECT ` + termColumns + ` FROM academic_terms WHERE id = $1`
	var term models.AcademicTerm
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindCurrent returns the current term.
func (r *TermRepository) FindCurrent(ctx context.Context) (*models.AcademicTerm, error) {
	query := `SELECT ` + termColumns + ` FROM academic_terms WHERE is_current = TRUE LIMIT 1`
	var term models.AcademicTerm
	if err := r.db.GetContext(ctx, &term, query); err != nil {
		return nil, err
	}
	return &term, nil
}

// ExistsByYearAndPeriod checks if a term with the same year and period exists.
func (r *TermRepository) ExistsByYearAndPeriod(ctx context.Context, year, period int, excludeID string) (bool, error) {
	base := "SELECT 1 FROM academic_terms WHERE year = $1 AND period = $2"
	args := []interface{}{year, period}
	if excludeID != "" {
		base += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check term uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new term record. New terms are never current; activation is explicit.
func (r *TermRepository) Create(ctx context.Context, term *models.AcademicTerm) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if term.CreatedAt.IsZero() {
		term.CreatedAt = now
	}
	term.UpdatedAt = now
	term.IsCurrent = false

	const query = `INSERT INTO academic_terms (id, name, year, period, start_date, end_date, is_current, created_at, updated_at)
		VALUES (:id, :name, :year, :period, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// Update modifies descriptive term fields.
func (r *TermRepository) Update(ctx context.Context, term *models.AcademicTerm) error {
	term.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_terms SET name = :name, year = :year, period = :period, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update term: %w", err)
	}
	return nil
}

// SetCurrent atomically clears the current flag on every other term and sets it on id.
// It returns sql.ErrNoRows when the term does not exist, leaving the previous current term untouched.
func (r *TermRepository) SetCurrent(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_terms SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2`, now, id); err != nil {
		return fmt.Errorf("clear current terms: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE academic_terms SET is_current = TRUE, updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("set current term: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set current term rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}

// Delete removes a term permanently.
func (r *TermRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_terms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	return nil
}

// CountGroups returns the number of groups opened in the term.
func (r *TermRepository) CountGroups(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM course_groups WHERE term_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count term groups: %w", err)
	}
	return count, nil
}
