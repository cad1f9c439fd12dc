package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
)

const scheduleDetailSelect = `SELECT se.id, se.group_id, se.teacher_id, se.room_id, se.weekday, se.start_time, se.end_time, se.created_at, se.updated_at,
	g.term_id, g.number AS group_number, g.subject_id, s.code AS subject_code, s.name AS subject_name,
	t.full_name AS teacher_name, t.user_id AS teacher_user_id,
	r.code AS room_code, r.name AS room_name, r.building AS room_building`

const scheduleDetailFrom = `FROM schedule_entries se
	JOIN course_groups g ON g.id = se.group_id
	JOIN subjects s ON s.id = g.subject_id
	JOIN teachers t ON t.id = se.teacher_id
	JOIN rooms r ON r.id = se.room_id
	WHERE 1=1`

const bookingSelect = `SELECT se.id, se.group_id, se.teacher_id, se.room_id, g.term_id, se.weekday, se.start_time, se.end_time
	FROM schedule_entries se JOIN course_groups g ON g.id = se.group_id`

// TeacherLockKey is the advisory lock key serialising every write touching the teacher.
func TeacherLockKey(teacherID string) string {
	return "teacher:" + teacherID
}

// RoomLockKey is the advisory lock key serialising writes to the room on one weekday.
func RoomLockKey(roomID string, day scheduling.Weekday) string {
	return fmt.Sprintf("room:%s:%d", roomID, int(day))
}

type bookingRow struct {
	ID        string             `db:"id"`
	GroupID   string             `db:"group_id"`
	TeacherID string             `db:"teacher_id"`
	RoomID    string             `db:"room_id"`
	TermID    string             `db:"term_id"`
	Weekday   scheduling.Weekday `db:"weekday"`
	StartTime scheduling.Clock   `db:"start_time"`
	EndTime   scheduling.Clock   `db:"end_time"`
}

func (b bookingRow) booking() scheduling.Booking {
	return scheduling.Booking{
		EntryID:   b.ID,
		GroupID:   b.GroupID,
		TeacherID: b.TeacherID,
		RoomID:    b.RoomID,
		TermID:    b.TermID,
		Slot:      scheduling.Slot{Weekday: b.Weekday, Interval: scheduling.Interval{Start: b.StartTime, End: b.EndTime}},
	}
}

// ScheduleRepository persists schedule entries and answers the engine's queries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Source returns a scheduling.Source reading through exec, so checks made inside a
// transaction see the transaction's own writes.
func (r *ScheduleRepository) Source(exec sqlx.ExtContext) scheduling.Source {
	return &scheduleSource{exec: r.exec(exec)}
}

type scheduleSource struct {
	exec sqlx.ExtContext
}

// Overlapping implements scheduling.Source.
func (s *scheduleSource) Overlapping(ctx context.Context, slot scheduling.Slot, teacherID, roomID, excludeID string) ([]scheduling.Booking, error) {
	query := bookingSelect + ` WHERE se.weekday = $1 AND se.start_time < $2 AND se.end_time > $3 AND (se.teacher_id = $4 OR se.room_id = $5)`
	args := []interface{}{slot.Weekday, slot.End, slot.Start, teacherID, roomID}
	if excludeID != "" {
		query += ` AND se.id <> $6`
		args = append(args, excludeID)
	}
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, s.exec, &rows, query+` ORDER BY se.start_time ASC`, args...); err != nil {
		return nil, fmt.Errorf("find overlapping entries: %w", err)
	}
	out := make([]scheduling.Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.booking())
	}
	return out, nil
}

// TeacherMinutes implements scheduling.Source.
func (s *scheduleSource) TeacherMinutes(ctx context.Context, teacherID, termID, excludeID string) (int, error) {
	var fb filterBuilder
	fb.add("se.teacher_id = $%d", teacherID)
	if termID != "" {
		fb.add("g.term_id = $%d", termID)
	}
	if excludeID != "" {
		fb.add("se.id <> $%d", excludeID)
	}
	query := fb.apply(`SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (se.end_time - se.start_time)) / 60), 0)::bigint
	FROM schedule_entries se JOIN course_groups g ON g.id = se.group_id WHERE 1=1`)
	var minutes int
	if err := sqlx.GetContext(ctx, s.exec, &minutes, query, fb.args...); err != nil {
		return 0, fmt.Errorf("sum teacher minutes: %w", err)
	}
	return minutes, nil
}

// LockKeys takes transaction-scoped advisory locks in sorted order. exec must be a transaction.
func (r *ScheduleRepository) LockKeys(ctx context.Context, exec sqlx.ExtContext, keys []string) error {
	sorted := append([]string{}, keys...)
	sort.Strings(sorted)
	var last string
	for i, key := range sorted {
		if i > 0 && key == last {
			continue
		}
		last = key
		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("acquire schedule lock %s: %w", key, err)
		}
	}
	return nil
}

// ListBookings returns every entry as engine bookings.
func (r *ScheduleRepository) ListBookings(ctx context.Context, exec sqlx.ExtContext) ([]scheduling.Booking, error) {
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, bookingSelect+` ORDER BY se.weekday ASC, se.start_time ASC`); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]scheduling.Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.booking())
	}
	return out, nil
}

const insertScheduleEntry = `INSERT INTO schedule_entries (id, group_id, teacher_id, room_id, weekday, start_time, end_time, created_at, updated_at) VALUES (:id, :group_id, :teacher_id, :room_id, :weekday, :start_time, :end_time, :created_at, :updated_at)`

// Create inserts an entry.
func (r *ScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), insertScheduleEntry, entry); err != nil {
		return fmt.Errorf("create schedule entry: %w", err)
	}
	return nil
}

// BulkInsert inserts entries one by one through exec, normally the batch transaction.
func (r *ScheduleRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, entries []models.ScheduleEntry) error {
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, insertScheduleEntry, entry); err != nil {
			return fmt.Errorf("bulk insert schedule entry: %w", err)
		}
	}
	return nil
}

// Update rewrites the placement of an entry.
func (r *ScheduleRepository) Update(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_entries SET group_id = :group_id, teacher_id = :teacher_id, room_id = :room_id, weekday = :weekday, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return fmt.Errorf("update schedule entry: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (r *ScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM schedule_entries WHERE id = $1`, id); err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	return nil
}

// FindByID returns an entry with display names.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEntryDetail, error) {
	query := scheduleDetailSelect + " " + scheduleDetailFrom + ` AND se.id = $1`
	var entry models.ScheduleEntryDetail
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByIDs returns detailed entries for the given ids ordered by weekday and start time.
func (r *ScheduleRepository) ListByIDs(ctx context.Context, ids []string) ([]models.ScheduleEntryDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := scheduleDetailSelect + " " + scheduleDetailFrom + ` AND se.id = ANY($1) ORDER BY se.weekday ASC, se.start_time ASC`
	var entries []models.ScheduleEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list schedule entries by id: %w", err)
	}
	return entries, nil
}

func scheduleFilter(filter models.ScheduleFilter) *filterBuilder {
	fb := &filterBuilder{}
	if filter.TermID != "" {
		fb.add("g.term_id = $%d", filter.TermID)
	}
	if filter.TeacherID != "" {
		fb.add("se.teacher_id = $%d", filter.TeacherID)
	}
	if filter.RoomID != "" {
		fb.add("se.room_id = $%d", filter.RoomID)
	}
	if filter.GroupID != "" {
		fb.add("se.group_id = $%d", filter.GroupID)
	}
	if filter.Weekday > 0 {
		fb.add("se.weekday = $%d", filter.Weekday)
	}
	return fb
}

// List returns a page of detailed entries.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, int, error) {
	fb := scheduleFilter(filter)
	base := fb.apply(scheduleDetailFrom)

	column, order := orderClause(filter.SortBy, filter.SortOrder, "created_at", map[string]string{
		"weekday":    "se.weekday",
		"start_time": "se.start_time",
		"teacher":    "t.full_name",
		"room":       "r.code",
		"created_at": "se.created_at",
	})
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s %s ORDER BY %s %s, se.id ASC LIMIT %d OFFSET %d", scheduleDetailSelect, base, column, order, limit, offset)
	var entries []models.ScheduleEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, fb.args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), fb.args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule entries: %w", err)
	}
	return entries, total, nil
}

// ListAll returns every matching entry ordered for timetable rendering.
func (r *ScheduleRepository) ListAll(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	fb := scheduleFilter(filter)
	query := fmt.Sprintf("%s %s ORDER BY se.weekday ASC, se.start_time ASC, r.code ASC", scheduleDetailSelect, fb.apply(scheduleDetailFrom))
	var entries []models.ScheduleEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, fb.args...); err != nil {
		return nil, fmt.Errorf("list weekly entries: %w", err)
	}
	return entries, nil
}

// ListUpcoming returns entries on weekday starting at or after from, soonest first.
func (r *ScheduleRepository) ListUpcoming(ctx context.Context, termID string, day scheduling.Weekday, from scheduling.Clock, limit int) ([]models.ScheduleEntryDetail, error) {
	if limit <= 0 {
		limit = 5
	}
	var fb filterBuilder
	fb.add("se.weekday = $%d", day)
	fb.add("se.start_time >= $%d", from)
	if termID != "" {
		fb.add("g.term_id = $%d", termID)
	}
	query := fmt.Sprintf("%s %s ORDER BY se.start_time ASC LIMIT %d", scheduleDetailSelect, fb.apply(scheduleDetailFrom), limit)
	var entries []models.ScheduleEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, fb.args...); err != nil {
		return nil, fmt.Errorf("list upcoming entries: %w", err)
	}
	return entries, nil
}

// TeacherLoads aggregates weekly hours per active teacher, optionally scoped to a term and a teacher.
func (r *ScheduleRepository) TeacherLoads(ctx context.Context, termID, teacherID string) ([]models.TeacherLoad, error) {
	var args []interface{}
	join := `LEFT JOIN schedule_entries se ON se.teacher_id = t.id`
	if termID != "" {
		args = append(args, termID)
		join += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM course_groups g WHERE g.id = se.group_id AND g.term_id = $%d)`, len(args))
	}
	where := `WHERE t.active = TRUE`
	if teacherID != "" {
		args = append(args, teacherID)
		where = fmt.Sprintf(`WHERE t.id = $%d`, len(args))
	}
	query := fmt.Sprintf(`SELECT t.id AS teacher_id, t.full_name, t.max_weekly_hours AS max_hours, COUNT(se.id) AS entries,
	COALESCE(SUM(EXTRACT(EPOCH FROM (se.end_time - se.start_time)) / 3600), 0) AS hours
	FROM teachers t %s %s
	GROUP BY t.id, t.full_name, t.max_weekly_hours
	ORDER BY hours DESC, t.full_name ASC`, join, where)

	var loads []models.TeacherLoad
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate teacher loads: %w", err)
	}
	for i := range loads {
		loads[i].TermID = termID
	}
	return loads, nil
}

// RoomOccupancy aggregates booked hours per active room, optionally scoped to a term and a room.
func (r *ScheduleRepository) RoomOccupancy(ctx context.Context, termID, roomID string) ([]models.RoomOccupancy, error) {
	var args []interface{}
	join := `LEFT JOIN schedule_entries se ON se.room_id = rm.id`
	if termID != "" {
		args = append(args, termID)
		join += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM course_groups g WHERE g.id = se.group_id AND g.term_id = $%d)`, len(args))
	}
	where := `WHERE rm.active = TRUE`
	if roomID != "" {
		args = append(args, roomID)
		where = fmt.Sprintf(`WHERE rm.id = $%d`, len(args))
	}
	query := fmt.Sprintf(`SELECT rm.id AS room_id, rm.code, rm.name, rm.capacity, COUNT(se.id) AS entries,
	COALESCE(SUM(EXTRACT(EPOCH FROM (se.end_time - se.start_time)) / 3600), 0) AS weekly_hours
	FROM rooms rm %s %s
	GROUP BY rm.id, rm.code, rm.name, rm.capacity
	ORDER BY weekly_hours DESC, rm.code ASC`, join, where)

	var rows []models.RoomOccupancy
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate room occupancy: %w", err)
	}
	return rows, nil
}

// CountAttendance returns the number of attendance records referencing the entry.
func (r *ScheduleRepository) CountAttendance(ctx context.Context, exec sqlx.ExtContext, id string) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, `SELECT COUNT(*) FROM attendance_records WHERE schedule_entry_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count entry attendance: %w", err)
	}
	return count, nil
}
