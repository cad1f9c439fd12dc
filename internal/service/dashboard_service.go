package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
)

type dashboardTotalsReader interface {
	Totals(ctx context.Context, termID string) (*models.DashboardTotals, error)
}

type upcomingLister interface {
	ListUpcoming(ctx context.Context, termID string, day scheduling.Weekday, from scheduling.Clock, limit int) ([]models.ScheduleEntryDetail, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL       time.Duration
	AttendanceDays int
	UpcomingLimit  int
	Location       *time.Location
}

// DashboardService composes the landing page summary.
type DashboardService struct {
	totals     dashboardTotalsReader
	terms      currentTermReader
	attendance attendanceStatsReader
	schedules  upcomingLister
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Totals     dashboardTotalsReader
	Terms      currentTermReader
	Attendance attendanceStatsReader
	Schedules  upcomingLister
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.AttendanceDays <= 0 {
		cfg.AttendanceDays = 30
	}
	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = 5
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		totals:     params.Totals,
		terms:      params.Terms,
		attendance: params.Attendance,
		schedules:  params.Schedules,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Summary returns the dashboard for the caller and whether it came from cache.
// Teachers see attendance figures for their own records only.
func (s *DashboardService) Summary(ctx context.Context, actor Actor) (*models.DashboardSummary, bool, error) {
	var term *models.AcademicTerm
	termID := ""
	if s.terms != nil {
		current, err := s.terms.FindCurrent(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, false, internalError(err, "failed to load current term")
		default:
			term, termID = current, current.ID
		}
	}

	now := s.now().In(s.cfg.Location)
	teacherID := ""
	if actor.Role == models.RoleTeacher {
		teacherID = actor.TeacherID
	}
	key := dashboardCacheKey(string(actor.Role), teacherID, termID+":"+now.Format("2006-01-02T15"))
	var cached models.DashboardSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	summary := &models.DashboardSummary{CurrentTerm: term, UpcomingToday: []models.ScheduleEntryDetail{}}
	totals, err := s.totals.Totals(ctx, termID)
	if err != nil {
		return nil, false, internalError(err, "failed to count catalogue totals")
	}
	summary.Totals = *totals

	to := now
	from := now.AddDate(0, 0, -s.cfg.AttendanceDays)
	stats, err := s.attendance.Stats(ctx, teacherID, &from, &to)
	if err != nil {
		return nil, false, internalError(err, "failed to compute attendance statistics")
	}
	stats.TeacherID = teacherID
	stats.Finalize()
	summary.Attendance = *stats

	if day := scheduling.Weekday(now.Weekday()); day.Valid() {
		upcoming, err := s.schedules.ListUpcoming(ctx, termID, day, scheduling.ClockOf(now), s.cfg.UpcomingLimit)
		if err != nil {
			return nil, false, internalError(err, "failed to load upcoming classes")
		}
		if upcoming != nil {
			summary.UpcomingToday = upcoming
		}
	}

	if err := s.cache.Set(ctx, key, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return summary, false, nil
}
