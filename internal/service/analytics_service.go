package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type reportScheduleReader interface {
	ListAll(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error)
	TeacherLoads(ctx context.Context, termID, teacherID string) ([]models.TeacherLoad, error)
	RoomOccupancy(ctx context.Context, termID, roomID string) ([]models.RoomOccupancy, error)
}

type reportAttendanceReader interface {
	attendanceStatsReader
	ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error)
}

// AnalyticsService builds the read-only reports behind the JSON report endpoints and file exports.
// Term scoped reports are cached under the schedule prefix so timetable writes drop them.
type AnalyticsService struct {
	schedules  reportScheduleReader
	attendance reportAttendanceReader
	terms      currentTermReader
	cache      *CacheService
	logger     *zap.Logger
	defaultMax float64
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(schedules reportScheduleReader, attendance reportAttendanceReader, terms currentTermReader, cache *CacheService, logger *zap.Logger, defaultMax float64) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMax <= 0 {
		defaultMax = 40
	}
	return &AnalyticsService{
		schedules:  schedules,
		attendance: attendance,
		terms:      terms,
		cache:      cache,
		logger:     logger,
		defaultMax: defaultMax,
	}
}

// WeeklySchedule returns every entry of the term bucketed by weekday.
func (s *AnalyticsService) WeeklySchedule(ctx context.Context, termID string) (*models.WeeklyTimetable, error) {
	termID, err := resolveTermID(ctx, s.terms, termID)
	if err != nil {
		return nil, err
	}
	key := weeklyCacheKey(string(TimetableTerm), "", termID)
	var cached models.WeeklyTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	entries, err := s.schedules.ListAll(ctx, models.ScheduleFilter{TermID: termID})
	if err != nil {
		return nil, internalError(err, "failed to load weekly schedule")
	}
	timetable := models.BuildWeeklyTimetable(termID, entries)
	if err := s.cache.Set(ctx, key, timetable, 0); err != nil {
		s.logger.Warn("cache weekly schedule", zap.Error(err))
	}
	return &timetable, nil
}

// TeacherAttendance lists a teacher's records in the range with their totals.
func (s *AnalyticsService) TeacherAttendance(ctx context.Context, teacherID string, from, to *time.Time) (*models.TeacherAttendanceReport, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is required")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must not be before date_from")
	}
	stats, err := s.attendance.Stats(ctx, teacherID, from, to)
	if err != nil {
		return nil, internalError(err, "failed to compute attendance statistics")
	}
	records, err := s.attendance.ListAll(ctx, models.AttendanceFilter{TeacherID: teacherID, DateFrom: from, DateTo: to})
	if err != nil {
		return nil, internalError(err, "failed to load attendance records")
	}
	stats.TeacherID = teacherID
	stats.Finalize()
	if records == nil {
		records = []models.AttendanceDetail{}
	}
	return &models.TeacherAttendanceReport{
		TeacherID: teacherID,
		Range:     models.ReportRange{From: from, To: to},
		Stats:     *stats,
		Records:   records,
	}, nil
}

// TeacherLoads reports booked hours against each active teacher's ceiling.
func (s *AnalyticsService) TeacherLoads(ctx context.Context, termID string) (*models.TeacherLoadReport, error) {
	termID, err := resolveTermID(ctx, s.terms, termID)
	if err != nil {
		return nil, err
	}
	key := reportCacheKey("load", termID)
	var cached models.TeacherLoadReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	loads, err := s.schedules.TeacherLoads(ctx, termID, "")
	if err != nil {
		return nil, internalError(err, "failed to compute teacher loads")
	}
	report := models.TeacherLoadReport{TermID: termID, Teachers: make([]models.TeacherLoad, 0, len(loads))}
	for _, load := range loads {
		load.Finalize(s.defaultMax)
		if load.Overloaded {
			report.Overloaded++
		}
		report.Teachers = append(report.Teachers, load)
	}
	if err := s.cache.Set(ctx, key, report, 0); err != nil {
		s.logger.Warn("cache teacher loads", zap.Error(err))
	}
	return &report, nil
}

// RoomOccupancy reports how much of the bookable week each active room is used.
func (s *AnalyticsService) RoomOccupancy(ctx context.Context, termID string) (*models.RoomOccupancyReport, error) {
	termID, err := resolveTermID(ctx, s.terms, termID)
	if err != nil {
		return nil, err
	}
	key := reportCacheKey("occupancy", termID)
	var cached models.RoomOccupancyReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	rows, err := s.schedules.RoomOccupancy(ctx, termID, "")
	if err != nil {
		return nil, internalError(err, "failed to compute room occupancy")
	}
	report := models.RoomOccupancyReport{
		TermID:      termID,
		WindowHours: models.OccupancyWindowHours,
		Rooms:       make([]models.RoomOccupancy, 0, len(rows)),
	}
	for _, row := range rows {
		row.Finalize()
		report.Rooms = append(report.Rooms, row)
	}
	if err := s.cache.Set(ctx, key, report, 0); err != nil {
		s.logger.Warn("cache room occupancy", zap.Error(err))
	}
	return &report, nil
}
