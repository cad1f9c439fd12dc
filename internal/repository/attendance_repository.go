package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-schedule-api/internal/models"
)

const attendanceDetailSelect = `SELECT ar.id, ar.schedule_entry_id, ar.teacher_id, ar.date, ar.recorded_at, ar.status, ar.method, ar.notes,
	ar.latitude, ar.longitude, ar.distance_meters, ar.recorded_by, ar.created_at, ar.updated_at,
	t.full_name AS teacher_name, s.name AS subject_name, g.number AS group_number, r.name AS room_name, se.weekday`

const attendanceDetailFrom = `FROM attendance_records ar
	JOIN schedule_entries se ON se.id = ar.schedule_entry_id
	JOIN course_groups g ON g.id = se.group_id
	JOIN subjects s ON s.id = g.subject_id
	JOIN teachers t ON t.id = ar.teacher_id
	JOIN rooms r ON r.id = se.room_id
	WHERE 1=1`

// AttendanceRepository persists teacher check-ins.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a record. A second record for the same entry, teacher and date yields ErrDuplicate.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO attendance_records (id, schedule_entry_id, teacher_id, date, recorded_at, status, method, notes, latitude, longitude, distance_meters, recorded_by, created_at, updated_at)
		VALUES (:id, :schedule_entry_id, :teacher_id, :date, :recorded_at, :status, :method, :notes, :latitude, :longitude, :distance_meters, :recorded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// FindByID returns a record with schedule context.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	query := attendanceDetailSelect + " " + attendanceDetailFrom + ` AND ar.id = $1`
	var record models.AttendanceDetail
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus changes the status and notes of a record.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, notes *string) error {
	const query = `UPDATE attendance_records SET status = $2, notes = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, notes, time.Now().UTC()); err != nil {
		return fmt.Errorf("update attendance record: %w", err)
	}
	return nil
}

// Delete removes a record. It returns sql.ErrNoRows when no record matched.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance record: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func attendanceFilter(filter models.AttendanceFilter) *filterBuilder {
	fb := &filterBuilder{}
	if filter.TeacherID != "" {
		fb.add("ar.teacher_id = $%d", filter.TeacherID)
	}
	if filter.ScheduleEntryID != "" {
		fb.add("ar.schedule_entry_id = $%d", filter.ScheduleEntryID)
	}
	if filter.TermID != "" {
		fb.add("g.term_id = $%d", filter.TermID)
	}
	if filter.Status != "" {
		fb.add("ar.status = $%d", filter.Status)
	}
	if filter.Method != "" {
		fb.add("ar.method = $%d", filter.Method)
	}
	if filter.DateFrom != nil {
		fb.add("ar.date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		fb.add("ar.date <= $%d", *filter.DateTo)
	}
	return fb
}

// List returns a page of records with schedule context.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	fb := attendanceFilter(filter)
	base := fb.apply(attendanceDetailFrom)

	column, order := orderClause(filter.SortBy, filter.SortOrder, "date", map[string]string{
		"date":        "ar.date",
		"recorded_at": "ar.recorded_at",
		"status":      "ar.status",
		"teacher":     "t.full_name",
	})
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s %s ORDER BY %s %s, ar.recorded_at DESC LIMIT %d OFFSET %d", attendanceDetailSelect, base, column, order, limit, offset)
	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, fb.args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), fb.args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return records, total, nil
}

// ListAll returns every matching record ordered by date, used by exports.
func (r *AttendanceRepository) ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	fb := attendanceFilter(filter)
	query := fmt.Sprintf("%s %s ORDER BY ar.date ASC, ar.recorded_at ASC", attendanceDetailSelect, fb.apply(attendanceDetailFrom))
	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, fb.args...); err != nil {
		return nil, fmt.Errorf("list attendance export rows: %w", err)
	}
	return records, nil
}

// CountStatusSince counts the teacher's records with status dated on or after since.
func (r *AttendanceRepository) CountStatusSince(ctx context.Context, teacherID string, status models.AttendanceStatus, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_records WHERE teacher_id = $1 AND status = $2 AND date >= $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, status, since); err != nil {
		return 0, fmt.Errorf("count attendance by status: %w", err)
	}
	return count, nil
}

// Stats counts records per status, optionally for one teacher and a date range.
func (r *AttendanceRepository) Stats(ctx context.Context, teacherID string, from, to *time.Time) (*models.AttendanceStats, error) {
	var fb filterBuilder
	if teacherID != "" {
		fb.add("teacher_id = $%d", teacherID)
	}
	if from != nil {
		fb.add("date >= $%d", *from)
	}
	if to != nil {
		fb.add("date <= $%d", *to)
	}
	query := fb.apply(`SELECT COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = 'present') AS present,
	COUNT(*) FILTER (WHERE status = 'absent') AS absent,
	COUNT(*) FILTER (WHERE status = 'late') AS late,
	COUNT(*) FILTER (WHERE status = 'excused') AS excused
	FROM attendance_records WHERE 1=1`)

	var stats models.AttendanceStats
	if err := r.db.GetContext(ctx, &stats, query, fb.args...); err != nil {
		return nil, fmt.Errorf("attendance stats: %w", err)
	}
	stats.TeacherID = teacherID
	stats.Finalize()
	return &stats, nil
}
