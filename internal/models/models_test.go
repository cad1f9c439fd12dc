package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
)

func TestBuildWeeklyTimetable(t *testing.T) {
	entries := []ScheduleEntryDetail{
		{ScheduleEntry: ScheduleEntry{ID: "a", Weekday: scheduling.Monday, StartTime: scheduling.At(8, 0), EndTime: scheduling.At(10, 0)}},
		{ScheduleEntry: ScheduleEntry{ID: "b", Weekday: scheduling.Monday, StartTime: scheduling.At(10, 0), EndTime: scheduling.At(12, 0)}},
		{ScheduleEntry: ScheduleEntry{ID: "c", Weekday: scheduling.Saturday, StartTime: scheduling.At(8, 0), EndTime: scheduling.At(9, 0)}},
	}
	week := BuildWeeklyTimetable("term-1", entries)

	require.Len(t, week.Days, 6)
	assert.Equal(t, 3, week.Total)
	assert.Equal(t, "Monday", week.Days[0].Name)
	assert.Len(t, week.Days[0].Entries, 2)
	assert.Empty(t, week.Days[2].Entries)
	assert.NotNil(t, week.Days[2].Entries)
	assert.Equal(t, "c", week.Days[5].Entries[0].ID)
}

func TestAttendanceStatsFinalize(t *testing.T) {
	stats := AttendanceStats{Total: 8, Present: 5, Late: 1, Absent: 2}
	stats.Finalize()
	assert.Equal(t, 75.0, stats.Percentage)

	empty := AttendanceStats{}
	empty.Finalize()
	assert.Equal(t, 0.0, empty.Percentage)
}

func TestTeacherLoadFinalize(t *testing.T) {
	load := TeacherLoad{Hours: 42}
	load.Finalize(40)
	assert.Equal(t, 40.0, load.MaxHours)
	assert.Equal(t, 105.0, load.Percent)
	assert.True(t, load.Overloaded)
}

func TestRoomOccupancyFinalize(t *testing.T) {
	occ := RoomOccupancy{WeeklyHours: 18}
	occ.Finalize()
	assert.Equal(t, 25.0, occ.Percent)
}

func TestGroupLabel(t *testing.T) {
	g := GroupDetail{Group: Group{Number: 2}, SubjectName: "Calculus I"}
	assert.Equal(t, "Group Calculus I - 2", g.Label())
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
	_, size = NormalizePage(3, 500)
	assert.Equal(t, 100, size)
}

func TestReportJobParamsScan(t *testing.T) {
	var p ReportJobParams
	require.NoError(t, p.Scan([]byte(`{"format":"xlsx","term_id":"t1"}`)))
	assert.Equal(t, "xlsx", p.Format)
	assert.Equal(t, "t1", p.TermID)
	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p.Format)
	assert.Error(t, p.Scan(12))
}

func TestRoomLocation(t *testing.T) {
	lat, lon := -17.39, -66.15
	_, ok := Room{}.Location()
	assert.False(t, ok)
	p, ok := Room{Latitude: &lat, Longitude: &lon}.Location()
	assert.True(t, ok)
	assert.Equal(t, lat, p.Lat)
}
