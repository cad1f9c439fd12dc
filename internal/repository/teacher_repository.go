package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
)

const teacherColumns = `id, user_id, employee_code, email, full_name, phone, specialty, academic_degree, max_weekly_hours, availability, active, created_at, updated_at`

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var fb filterBuilder
	if filter.Active != nil {
		fb.add("active = $%d", *filter.Active)
	}
	if filter.Specialty != "" {
		fb.add("LOWER(COALESCE(specialty, '')) = $%d", strings.ToLower(filter.Specialty))
	}
	if filter.Search != "" {
		fb.add("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(employee_code) LIKE $%d)", likePattern(filter.Search))
	}
	base := fb.apply("FROM teachers WHERE 1=1")

	column, order := orderClause(filter.SortBy, filter.SortOrder, "created_at", map[string]string{
		"full_name":     "full_name",
		"email":         "email",
		"employee_code": "employee_code",
		"created_at":    "created_at",
		"updated_at":    "updated_at",
	})
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", teacherColumns, base, column, order, limit, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, fb.args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), fb.args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// ListActive returns every active teacher in creation order, the order the assignment engine tries them.
func (r *TeacherRepository) ListActive(ctx context.Context, exec sqlx.ExtContext) ([]models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE active = TRUE ORDER BY created_at ASC, id ASC`
	var teachers []models.Teacher
	if err := sqlx.SelectContext(ctx, r.exec(exec), &teachers, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByUserID fetches the teacher linked to a login account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE user_id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByEmail checks if another teacher uses the same email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER($1)", email, excludeID)
}

// ExistsByEmployeeCode checks if another teacher uses the same employee code.
func (r *TeacherRepository) ExistsByEmployeeCode(ctx context.Context, code string, excludeID string) (bool, error) {
	if strings.TrimSpace(code) == "" {
		return false, nil
	}
	return r.exists(ctx, "employee_code = $1", code, excludeID)
}

func (r *TeacherRepository) exists(ctx context.Context, condition string, value interface{}, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE " + condition
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	if teacher.MaxWeeklyHours <= 0 {
		teacher.MaxWeeklyHours = scheduling.DefaultMaxWeeklyHours
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, user_id, employee_code, email, full_name, phone, specialty, academic_degree, max_weekly_hours, availability, active, created_at, updated_at)
		VALUES (:id, :user_id, :employee_code, :email, :full_name, :phone, :specialty, :academic_degree, :max_weekly_hours, :availability, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies the profile fields of a teacher. Scheduling constraints have dedicated setters.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET user_id = :user_id, employee_code = :employee_code, email = :email, full_name = :full_name, phone = :phone, specialty = :specialty, academic_degree = :academic_degree, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// SetAvailability replaces the declared weekly availability windows.
func (r *TeacherRepository) SetAvailability(ctx context.Context, id string, availability scheduling.Availability) error {
	const query = `UPDATE teachers SET availability = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, availability, time.Now().UTC()); err != nil {
		return fmt.Errorf("set teacher availability: %w", err)
	}
	return nil
}

// SetMaxWeeklyHours changes the weekly load ceiling.
func (r *TeacherRepository) SetMaxWeeklyHours(ctx context.Context, id string, hours float64) error {
	const query = `UPDATE teachers SET max_weekly_hours = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, hours, time.Now().UTC()); err != nil {
		return fmt.Errorf("set teacher max weekly hours: %w", err)
	}
	return nil
}

// Deactivate sets a teacher's active flag to false.
func (r *TeacherRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE teachers SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate teacher: %w", err)
	}
	return nil
}

// ListActiveUserIDs returns the login accounts of active teachers, used for broadcast notifications.
func (r *TeacherRepository) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT user_id FROM teachers WHERE active = TRUE AND user_id IS NOT NULL ORDER BY full_name ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list active teacher users: %w", err)
	}
	return ids, nil
}
