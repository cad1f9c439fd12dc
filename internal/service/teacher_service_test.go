package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/repository"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type teacherRepoStub struct {
	teachers     map[string]*models.Teacher
	emailTaken   bool
	codeTaken    bool
	createErr    error
	availability map[string]scheduling.Availability
	deactivated  []string
}

func newTeacherRepoStub(teachers ...models.Teacher) *teacherRepoStub {
	stub := &teacherRepoStub{teachers: map[string]*models.Teacher{}, availability: map[string]scheduling.Availability{}}
	for i := range teachers {
		t := teachers[i]
		stub.teachers[t.ID] = &t
	}
	return stub
}

func (s *teacherRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	out := make([]models.Teacher, 0, len(s.teachers))
	for _, t := range s.teachers {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (s *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	t, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (s *teacherRepoStub) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return s.emailTaken, nil
}

func (s *teacherRepoStub) ExistsByEmployeeCode(ctx context.Context, code, excludeID string) (bool, error) {
	return s.codeTaken, nil
}

func (s *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if s.createErr != nil {
		return s.createErr
	}
	teacher.ID = "t-new"
	s.teachers[teacher.ID] = teacher
	return nil
}

func (s *teacherRepoStub) Update(ctx context.Context, teacher *models.Teacher) error {
	s.teachers[teacher.ID] = teacher
	return nil
}

func (s *teacherRepoStub) SetAvailability(ctx context.Context, id string, availability scheduling.Availability) error {
	s.availability[id] = availability
	return nil
}

func (s *teacherRepoStub) SetMaxWeeklyHours(ctx context.Context, id string, hours float64) error {
	s.teachers[id].MaxWeeklyHours = hours
	return nil
}

func (s *teacherRepoStub) Deactivate(ctx context.Context, id string) error {
	s.deactivated = append(s.deactivated, id)
	return nil
}

type loadReaderStub struct {
	loads      []models.TeacherLoad
	lastTermID string
}

func (s *loadReaderStub) TeacherLoads(ctx context.Context, termID, teacherID string) ([]models.TeacherLoad, error) {
	s.lastTermID = termID
	return s.loads, nil
}

type statsReaderStub struct {
	stats *models.AttendanceStats
}

func (s *statsReaderStub) Stats(ctx context.Context, teacherID string, from, to *time.Time) (*models.AttendanceStats, error) {
	return s.stats, nil
}

type currentTermStub struct {
	term *models.AcademicTerm
}

func (s *currentTermStub) FindCurrent(ctx context.Context) (*models.AcademicTerm, error) {
	if s.term == nil {
		return nil, sql.ErrNoRows
	}
	return s.term, nil
}

func TestTeacherServiceCreateDefaultsCeiling(t *testing.T) {
	repo := newTeacherRepoStub()
	svc := NewTeacherService(repo, nil, nil, nil, nil, nil, 0)

	teacher, err := svc.Create(context.Background(), CreateTeacherRequest{EmployeeCode: " EMP-1 ", Email: "ana@uni.edu", FullName: "Ana Rojas"})
	require.NoError(t, err)
	assert.Equal(t, "EMP-1", teacher.EmployeeCode)
	assert.Equal(t, scheduling.DefaultMaxWeeklyHours, teacher.MaxWeeklyHours)
	assert.True(t, teacher.Active)
	assert.False(t, teacher.Availability.IsRestricted())
}

func TestTeacherServiceCreateConflicts(t *testing.T) {
	repo := newTeacherRepoStub()
	repo.emailTaken = true
	svc := NewTeacherService(repo, nil, nil, nil, nil, nil, 40)

	_, err := svc.Create(context.Background(), CreateTeacherRequest{EmployeeCode: "EMP-1", Email: "ana@uni.edu", FullName: "Ana"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.emailTaken = false
	repo.createErr = repository.ErrDuplicate
	_, err = svc.Create(context.Background(), CreateTeacherRequest{EmployeeCode: "EMP-1", Email: "ana@uni.edu", FullName: "Ana"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateTeacherRequest{Email: "ana@uni.edu", FullName: "Ana"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceSetAvailability(t *testing.T) {
	repo := newTeacherRepoStub(models.Teacher{ID: "t1", FullName: "Ana"})
	svc := NewTeacherService(repo, nil, nil, nil, nil, nil, 40)

	windows := scheduling.Restricted(map[scheduling.Weekday][]scheduling.Interval{
		scheduling.Monday: {{Start: scheduling.At(8, 0), End: scheduling.At(12, 0)}},
	})
	teacher, err := svc.SetAvailability(context.Background(), "t1", SetAvailabilityRequest{Availability: windows})
	require.NoError(t, err)
	assert.True(t, teacher.Availability.IsRestricted())
	assert.True(t, repo.availability["t1"].IsRestricted())

	bad := scheduling.Restricted(map[scheduling.Weekday][]scheduling.Interval{
		scheduling.Monday: {{Start: scheduling.At(12, 0), End: scheduling.At(8, 0)}},
	})
	_, err = svc.SetAvailability(context.Background(), "t1", SetAvailabilityRequest{Availability: bad})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.SetAvailability(context.Background(), "missing", SetAvailabilityRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceSetMaxWeeklyHours(t *testing.T) {
	repo := newTeacherRepoStub(models.Teacher{ID: "t1", MaxWeeklyHours: 40})
	svc := NewTeacherService(repo, nil, nil, nil, nil, nil, 40)

	teacher, err := svc.SetMaxWeeklyHours(context.Background(), "t1", SetMaxHoursRequest{MaxWeeklyHours: 20})
	require.NoError(t, err)
	assert.Equal(t, 20.0, teacher.MaxWeeklyHours)

	_, err = svc.SetMaxWeeklyHours(context.Background(), "t1", SetMaxHoursRequest{MaxWeeklyHours: 0})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceLoadUsesCurrentTerm(t *testing.T) {
	repo := newTeacherRepoStub(models.Teacher{ID: "t1", FullName: "Ana", MaxWeeklyHours: 10})
	loads := &loadReaderStub{loads: []models.TeacherLoad{{TeacherID: "t1", FullName: "Ana", Hours: 12, MaxHours: 10, Entries: 6}}}
	terms := &currentTermStub{term: &models.AcademicTerm{ID: "term-1"}}
	svc := NewTeacherService(repo, loads, nil, terms, nil, nil, 40)

	load, err := svc.Load(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.Equal(t, "term-1", loads.lastTermID)
	assert.Equal(t, 120.0, load.Percent)
	assert.True(t, load.Overloaded)
}

func TestTeacherServiceLoadWithoutEntries(t *testing.T) {
	repo := newTeacherRepoStub(models.Teacher{ID: "t1", FullName: "Ana"})
	svc := NewTeacherService(repo, &loadReaderStub{}, nil, &currentTermStub{}, nil, nil, 40)

	load, err := svc.Load(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.Equal(t, 40.0, load.MaxHours)
	assert.Zero(t, load.Percent)
	assert.False(t, load.Overloaded)
}

func TestTeacherServiceAttendanceStats(t *testing.T) {
	repo := newTeacherRepoStub(models.Teacher{ID: "t1"})
	stats := &statsReaderStub{stats: &models.AttendanceStats{TeacherID: "t1", Total: 4, Present: 3, Percentage: 75}}
	svc := NewTeacherService(repo, nil, stats, nil, nil, nil, 40)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err := svc.AttendanceStats(context.Background(), "t1", &from, &to)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	result, err := svc.AttendanceStats(context.Background(), "t1", &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 75.0, result.Percentage)
}

func TestTeacherServiceDeactivate(t *testing.T) {
	repo := newTeacherRepoStub(models.Teacher{ID: "t1", Active: true})
	svc := NewTeacherService(repo, nil, nil, nil, nil, nil, 40)

	require.NoError(t, svc.Deactivate(context.Background(), "t1"))
	assert.Equal(t, []string{"t1"}, repo.deactivated)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(svc.Deactivate(context.Background(), "nope")).Code)
}
