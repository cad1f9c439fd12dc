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

const groupDetailSelect = `SELECT g.id, g.subject_id, g.term_id, g.number, g.capacity, g.created_at, g.updated_at,
	s.code AS subject_code, s.name AS subject_name, t.name AS term_name,
	(SELECT COUNT(*) FROM schedule_entries se WHERE se.group_id = g.id) AS entries`

const groupDetailFrom = `FROM course_groups g
	JOIN subjects s ON s.id = g.subject_id
	JOIN academic_terms t ON t.id = g.term_id
	WHERE 1=1`

// GroupRepository manages course groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns groups with subject and term names.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, int, error) {
	var fb filterBuilder
	if filter.TermID != "" {
		fb.add("g.term_id = $%d", filter.TermID)
	}
	if filter.SubjectID != "" {
		fb.add("g.subject_id = $%d", filter.SubjectID)
	}
	if filter.Unscheduled {
		fb.raw("NOT EXISTS (SELECT 1 FROM schedule_entries se WHERE se.group_id = g.id)")
	}
	base := fb.apply(groupDetailFrom)

	column, order := orderClause(filter.SortBy, filter.SortOrder, "created_at", map[string]string{
		"number":       "g.number",
		"capacity":     "g.capacity",
		"subject_name": "s.name",
		"created_at":   "g.created_at",
	})
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s %s ORDER BY %s %s LIMIT %d OFFSET %d", groupDetailSelect, base, column, order, limit, offset)
	var groups []models.GroupDetail
	if err := r.db.SelectContext(ctx, &groups, query, fb.args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), fb.args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}
	return groups, total, nil
}

// ListUnscheduled returns the term's groups without any schedule entry, oldest first.
func (r *GroupRepository) ListUnscheduled(ctx context.Context, exec sqlx.ExtContext, termID string) ([]models.GroupDetail, error) {
	query := groupDetailSelect + " " + groupDetailFrom +
		` AND g.term_id = $1 AND NOT EXISTS (SELECT 1 FROM schedule_entries se WHERE se.group_id = g.id) ORDER BY g.created_at ASC, g.number ASC`
	var groups []models.GroupDetail
	if err := sqlx.SelectContext(ctx, r.exec(exec), &groups, query, termID); err != nil {
		return nil, fmt.Errorf("list unscheduled groups: %w", err)
	}
	return groups, nil
}

// FindByID returns a group with its subject and term names.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	query := groupDetailSelect + " " + groupDetailFrom + ` AND g.id = $1`
	var group models.GroupDetail
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ExistsByNumber checks whether the subject already has a group with the number in the term.
func (r *GroupRepository) ExistsByNumber(ctx context.Context, subjectID, termID string, number int, excludeID string) (bool, error) {
	query := "SELECT 1 FROM course_groups WHERE subject_id = $1 AND term_id = $2 AND number = $3"
	args := []interface{}{subjectID, termID, number}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check group number: %w", err)
	}
	return true, nil
}

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	const query = `INSERT INTO course_groups (id, subject_id, term_id, number, capacity, created_at, updated_at) VALUES (:id, :subject_id, :term_id, :number, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update modifies a group.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_groups SET subject_id = :subject_id, term_id = :term_id, number = :number, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// Delete removes a group.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM course_groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// CountEntries returns the number of schedule entries for the group.
func (r *GroupRepository) CountEntries(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM schedule_entries WHERE group_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count group entries: %w", err)
	}
	return count, nil
}
