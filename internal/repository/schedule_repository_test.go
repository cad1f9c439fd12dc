package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
)

var bookingRowColumns = []string{"id", "group_id", "teacher_id", "room_id", "term_id", "weekday", "start_time", "end_time"}

func mondaySlot(t *testing.T, startHour, endHour int) scheduling.Slot {
	t.Helper()
	slot, err := scheduling.NewSlot(scheduling.Monday, scheduling.At(startHour, 0), scheduling.At(endHour, 0))
	require.NoError(t, err)
	return slot
}

func TestScheduleSourceOverlappingExcludesSelf(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	slot := mondaySlot(t, 9, 11)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE se.weekday = $1 AND se.start_time < $2 AND se.end_time > $3 AND (se.teacher_id = $4 OR se.room_id = $5) AND se.id <> $6 ORDER BY se.start_time ASC")).
		WithArgs(scheduling.Monday, "11:00:00", "09:00:00", "teacher-1", "room-1", "entry-9").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow("entry-1", "group-1", "teacher-2", "room-1", "term-1", 1, "08:00:00", "10:00:00"))

	bookings, err := repo.Source(nil).Overlapping(context.Background(), slot, "teacher-1", "room-1", "entry-9")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "room-1", bookings[0].RoomID)
	assert.Equal(t, scheduling.At(8, 0), bookings[0].Slot.Start)
	assert.Equal(t, scheduling.Monday, bookings[0].Slot.Weekday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSourceTeacherMinutesScopedToTerm(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND se.teacher_id = $1 AND g.term_id = $2 AND se.id <> $3")).
		WithArgs("teacher-1", "term-1", "entry-1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(180))

	hours, err := scheduling.TeacherLoad(context.Background(), repo.Source(nil), "teacher-1", "term-1", "entry-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, hours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryLockKeysSortedAndUnique(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	keys := []string{
		TeacherLockKey("b"),
		RoomLockKey("r1", scheduling.Tuesday),
		TeacherLockKey("a"),
		RoomLockKey("r1", scheduling.Tuesday),
	}
	mock.ExpectBegin()
	for _, key := range []string{"room:r1:2", "teacher:a", "teacher:b"} {
		mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
			WithArgs(key).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.LockKeys(context.Background(), tx, keys))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryBulkInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	entries := []models.ScheduleEntry{
		{GroupID: "g1", TeacherID: "t1", RoomID: "r1", Weekday: scheduling.Monday, StartTime: scheduling.At(8, 0), EndTime: scheduling.At(10, 0)},
		{GroupID: "g2", TeacherID: "t1", RoomID: "r1", Weekday: scheduling.Monday, StartTime: scheduling.At(10, 0), EndTime: scheduling.At(12, 0)},
	}
	mock.ExpectExec("INSERT INTO schedule_entries").
		WithArgs(sqlmock.AnyArg(), "g1", "t1", "r1", scheduling.Monday, "08:00:00", "10:00:00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO schedule_entries").
		WithArgs(sqlmock.AnyArg(), "g2", "t1", "r1", scheduling.Monday, "10:00:00", "12:00:00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.BulkInsert(context.Background(), nil, entries))
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListBookings(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_entries se JOIN course_groups g ON g.id = se.group_id ORDER BY se.weekday ASC, se.start_time ASC")).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow("e1", "g1", "t1", "r1", "term-1", 2, time.Date(0, 1, 1, 14, 0, 0, 0, time.UTC), time.Date(0, 1, 1, 16, 0, 0, 0, time.UTC)))

	bookings, err := repo.ListBookings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, scheduling.Tuesday, bookings[0].Slot.Weekday)
	assert.Equal(t, 120, bookings[0].Slot.Minutes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryTeacherLoads(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers t LEFT JOIN schedule_entries se ON se.teacher_id = t.id AND EXISTS (SELECT 1 FROM course_groups g WHERE g.id = se.group_id AND g.term_id = $1) WHERE t.id = $2")).
		WithArgs("term-1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "full_name", "max_hours", "entries", "hours"}).
			AddRow("t1", "Teacher A", "4.00", 2, "4.5"))

	loads, err := repo.TeacherLoads(context.Background(), "term-1", "t1")
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, "term-1", loads[0].TermID)
	assert.Equal(t, 4.5, loads[0].Hours)
	assert.Equal(t, 4.0, loads[0].MaxHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteMapsForeignKeyViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_entries WHERE id = $1")).
		WithArgs("se1").
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_records WHERE schedule_entry_id = $1")).
		WithArgs("se1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	assert.ErrorIs(t, repo.Delete(context.Background(), nil, "se1"), ErrInUse)
	count, err := repo.CountAttendance(context.Background(), nil, "se1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
