package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	ExistsByEmployeeCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	SetAvailability(ctx context.Context, id string, availability scheduling.Availability) error
	SetMaxWeeklyHours(ctx context.Context, id string, hours float64) error
	Deactivate(ctx context.Context, id string) error
}

type teacherLoadReader interface {
	TeacherLoads(ctx context.Context, termID, teacherID string) ([]models.TeacherLoad, error)
}

type attendanceStatsReader interface {
	Stats(ctx context.Context, teacherID string, from, to *time.Time) (*models.AttendanceStats, error)
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	UserID         *string  `json:"user_id" validate:"omitempty,uuid"`
	EmployeeCode   string   `json:"employee_code" validate:"required,max=50"`
	Email          string   `json:"email" validate:"required,email"`
	FullName       string   `json:"full_name" validate:"required,max=150"`
	Phone          *string  `json:"phone" validate:"omitempty,max=50"`
	Specialty      *string  `json:"specialty" validate:"omitempty,max=150"`
	AcademicDegree *string  `json:"academic_degree" validate:"omitempty,max=100"`
	MaxWeeklyHours *float64 `json:"max_weekly_hours" validate:"omitempty,gt=0,lte=60"`
}

// UpdateTeacherRequest represents payload for updating teachers.
type UpdateTeacherRequest struct {
	EmployeeCode   string  `json:"employee_code" validate:"required,max=50"`
	Email          string  `json:"email" validate:"required,email"`
	FullName       string  `json:"full_name" validate:"required,max=150"`
	Phone          *string `json:"phone" validate:"omitempty,max=50"`
	Specialty      *string `json:"specialty" validate:"omitempty,max=150"`
	AcademicDegree *string `json:"academic_degree" validate:"omitempty,max=100"`
	Active         *bool   `json:"active"`
}

// SetAvailabilityRequest replaces a teacher's availability windows. A null map lifts every restriction.
type SetAvailabilityRequest struct {
	Availability scheduling.Availability `json:"availability"`
}

// SetMaxHoursRequest updates the weekly ceiling.
type SetMaxHoursRequest struct {
	MaxWeeklyHours float64 `json:"max_weekly_hours" validate:"gt=0,lte=60"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo       teacherRepository
	loads      teacherLoadReader
	attendance attendanceStatsReader
	terms      currentTermReader
	validator  *validator.Validate
	logger     *zap.Logger
	defaultMax float64
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, loads teacherLoadReader, attendance attendanceStatsReader, terms currentTermReader, validate *validator.Validate, logger *zap.Logger, defaultMax float64) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMax <= 0 {
		defaultMax = scheduling.DefaultMaxWeeklyHours
	}
	return &TeacherService{repo: repo, loads: loads, attendance: attendance, terms: terms, validator: validate, logger: logger, defaultMax: defaultMax}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list teachers")
	}
	return teachers, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher record.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	if err := s.ensureUniqueFields(ctx, req.Email, req.EmployeeCode, ""); err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		UserID:         normalizeOptional(req.UserID),
		EmployeeCode:   strings.TrimSpace(req.EmployeeCode),
		Email:          strings.TrimSpace(req.Email),
		FullName:       strings.TrimSpace(req.FullName),
		Phone:          normalizeOptional(req.Phone),
		Specialty:      normalizeOptional(req.Specialty),
		AcademicDegree: normalizeOptional(req.AcademicDegree),
		MaxWeeklyHours: s.defaultMax,
		Availability:   scheduling.Unrestricted(),
		Active:         true,
	}
	if req.MaxWeeklyHours != nil {
		teacher.MaxWeeklyHours = *req.MaxWeeklyHours
	}

	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, persistError(err, "teacher already exists", "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueFields(ctx, req.Email, req.EmployeeCode, id); err != nil {
		return nil, err
	}

	teacher.EmployeeCode = strings.TrimSpace(req.EmployeeCode)
	teacher.Email = strings.TrimSpace(req.Email)
	teacher.FullName = strings.TrimSpace(req.FullName)
	teacher.Phone = normalizeOptional(req.Phone)
	teacher.Specialty = normalizeOptional(req.Specialty)
	teacher.AcademicDegree = normalizeOptional(req.AcademicDegree)
	if req.Active != nil {
		teacher.Active = *req.Active
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, persistError(err, "teacher already exists", "failed to update teacher")
	}
	return teacher, nil
}

// Deactivate marks a teacher inactive. Existing schedule entries are kept.
func (s *TeacherService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return internalError(err, "failed to deactivate teacher")
	}
	return nil
}

// SetAvailability replaces the declared availability windows.
func (s *TeacherService) SetAvailability(ctx context.Context, id string, req SetAvailabilityRequest) (*models.Teacher, error) {
	if err := req.Availability.Validate(); err != nil {
		return nil, validationError(err, "invalid availability windows")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAvailability(ctx, id, req.Availability); err != nil {
		return nil, internalError(err, "failed to update availability")
	}
	teacher.Availability = req.Availability
	return teacher, nil
}

// SetMaxWeeklyHours updates the weekly ceiling enforced by the validator.
func (s *TeacherService) SetMaxWeeklyHours(ctx context.Context, id string, req SetMaxHoursRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid max weekly hours")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetMaxWeeklyHours(ctx, id, req.MaxWeeklyHours); err != nil {
		return nil, internalError(err, "failed to update max weekly hours")
	}
	teacher.MaxWeeklyHours = req.MaxWeeklyHours
	return teacher, nil
}

// Load reports booked weekly hours against the ceiling. An empty termID means the current term.
func (s *TeacherService) Load(ctx context.Context, id, termID string) (*models.TeacherLoad, error) {
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	termID, err = resolveTermID(ctx, s.terms, termID)
	if err != nil {
		return nil, err
	}
	loads, err := s.loads.TeacherLoads(ctx, termID, id)
	if err != nil {
		return nil, internalError(err, "failed to compute teacher load")
	}

	load := models.TeacherLoad{TeacherID: teacher.ID, FullName: teacher.FullName, TermID: termID, MaxHours: teacher.MaxWeeklyHours}
	if len(loads) > 0 {
		load = loads[0]
	}
	load.Finalize(s.defaultMax)
	return &load, nil
}

// AttendanceStats summarises a teacher's attendance over an optional date range.
func (s *TeacherService) AttendanceStats(ctx context.Context, id string, from, to *time.Time) (*models.AttendanceStats, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must not be before date_from")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	stats, err := s.attendance.Stats(ctx, id, from, to)
	if err != nil {
		return nil, internalError(err, "failed to compute attendance statistics")
	}
	return stats, nil
}

func (s *TeacherService) ensureUniqueFields(ctx context.Context, email, code, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email), excludeID)
	if err != nil {
		return internalError(err, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	exists, err = s.repo.ExistsByEmployeeCode(ctx, strings.TrimSpace(code), excludeID)
	if err != nil {
		return internalError(err, "failed to check employee code uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "employee code already used")
	}
	return nil
}
