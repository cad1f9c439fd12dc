package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type reportSchedulesStub struct {
	entries   []models.ScheduleEntryDetail
	loads     []models.TeacherLoad
	occupancy []models.RoomOccupancy
	filters   []models.ScheduleFilter
	calls     int
}

func (s *reportSchedulesStub) ListAll(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	s.calls++
	s.filters = append(s.filters, filter)
	return s.entries, nil
}

func (s *reportSchedulesStub) TeacherLoads(ctx context.Context, termID, teacherID string) ([]models.TeacherLoad, error) {
	s.calls++
	return s.loads, nil
}

func (s *reportSchedulesStub) RoomOccupancy(ctx context.Context, termID, roomID string) ([]models.RoomOccupancy, error) {
	s.calls++
	return s.occupancy, nil
}

type reportAttendanceStub struct {
	stats   models.AttendanceStats
	records []models.AttendanceDetail
	filter  models.AttendanceFilter
}

func (s *reportAttendanceStub) Stats(ctx context.Context, teacherID string, from, to *time.Time) (*models.AttendanceStats, error) {
	stats := s.stats
	return &stats, nil
}

func (s *reportAttendanceStub) ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	s.filter = filter
	return s.records, nil
}

func reportEntry(id string, day scheduling.Weekday) models.ScheduleEntryDetail {
	start, _ := scheduling.ParseClock("08:00")
	end, _ := scheduling.ParseClock("10:00")
	return models.ScheduleEntryDetail{
		ScheduleEntry: models.ScheduleEntry{ID: id, GroupID: "g-" + id, TeacherID: "t1", RoomID: "r1", Weekday: day, StartTime: start, EndTime: end},
		TermID:        "term-1",
		GroupNumber:   1,
		SubjectName:   "Algebra",
		TeacherName:   "Ana Rojas",
		RoomCode:      "A101",
	}
}

func TestAnalyticsWeeklyScheduleUsesCurrentTermAndCache(t *testing.T) {
	schedules := &reportSchedulesStub{entries: []models.ScheduleEntryDetail{reportEntry("e1", scheduling.Monday), reportEntry("e2", scheduling.Saturday)}}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewAnalyticsService(schedules, &reportAttendanceStub{}, &currentTermStub{term: &models.AcademicTerm{ID: "term-1"}}, cache, nil, 0)

	timetable, err := svc.WeeklySchedule(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "term-1", timetable.TermID)
	assert.Equal(t, 2, timetable.Total)
	require.Len(t, timetable.Days, 6)
	assert.Len(t, timetable.Days[0].Entries, 1)
	assert.Len(t, timetable.Days[5].Entries, 1)
	assert.Equal(t, "term-1", schedules.filters[0].TermID)

	again, err := svc.WeeklySchedule(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Total)
	assert.Equal(t, 1, schedules.calls)
}

func TestAnalyticsTeacherLoadsFlagsOverload(t *testing.T) {
	schedules := &reportSchedulesStub{loads: []models.TeacherLoad{
		{TeacherID: "t1", FullName: "Ana", Hours: 44, MaxHours: 40},
		{TeacherID: "t2", FullName: "Luis", Hours: 10, MaxHours: 0},
	}}
	svc := NewAnalyticsService(schedules, &reportAttendanceStub{}, nil, nil, nil, 20)

	report, err := svc.TeacherLoads(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Overloaded)
	require.Len(t, report.Teachers, 2)
	assert.Equal(t, 110.0, report.Teachers[0].Percent)
	assert.True(t, report.Teachers[0].Overloaded)
	assert.Equal(t, 20.0, report.Teachers[1].MaxHours)
	assert.Equal(t, 50.0, report.Teachers[1].Percent)
}

func TestAnalyticsRoomOccupancyPercentOfWindow(t *testing.T) {
	schedules := &reportSchedulesStub{occupancy: []models.RoomOccupancy{{RoomID: "r1", Code: "A101", WeeklyHours: 36}, {RoomID: "r2", Code: "B201"}}}
	svc := NewAnalyticsService(schedules, &reportAttendanceStub{}, nil, nil, nil, 0)

	report, err := svc.RoomOccupancy(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, 72.0, report.WindowHours)
	assert.Equal(t, 50.0, report.Rooms[0].Percent)
	assert.Equal(t, 0.0, report.Rooms[1].Percent)
}

func TestAnalyticsTeacherAttendance(t *testing.T) {
	attendance := &reportAttendanceStub{stats: models.AttendanceStats{Total: 4, Present: 2, Late: 1, Absent: 1}}
	svc := NewAnalyticsService(&reportSchedulesStub{}, attendance, nil, nil, nil, 0)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)
	report, err := svc.TeacherAttendance(context.Background(), "t1", &from, &to)
	require.NoError(t, err)
	assert.Equal(t, 75.0, report.Stats.Percentage)
	assert.Equal(t, "t1", report.Stats.TeacherID)
	assert.NotNil(t, report.Records)
	assert.Equal(t, "t1", attendance.filter.TeacherID)
	assert.Equal(t, &from, attendance.filter.DateFrom)

	_, err = svc.TeacherAttendance(context.Background(), "t1", &to, &from)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.TeacherAttendance(context.Background(), "", nil, nil)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
