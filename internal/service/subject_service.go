package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
	CountGroups(ctx context.Context, id string) (int, error)
}

// SubjectRequest captures fields for creating or replacing subjects.
type SubjectRequest struct {
	Code          string `json:"code" validate:"required,max=20"`
	Name          string `json:"name" validate:"required,max=150"`
	Abbreviation  string `json:"abbreviation" validate:"omitempty,max=20"`
	TheoryHours   int    `json:"theory_hours" validate:"gte=0,lte=20"`
	PracticeHours int    `json:"practice_hours" validate:"gte=0,lte=20"`
	Level         int    `json:"level" validate:"omitempty,min=1,max=10"`
	Semester      int    `json:"semester" validate:"omitempty,min=1,max=12"`
}

// SubjectService handles subject catalogue workflows.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated subjects.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list subjects")
	}
	return subjects, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a subject by id.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "subject not found", "failed to load subject")
	}
	return subject, nil
}

// Create registers a subject with a unique code.
func (s *SubjectService) Create(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	if err := s.ensureUniqueCode(ctx, req.Code, ""); err != nil {
		return nil, err
	}
	subject := &models.Subject{}
	applySubjectRequest(subject, req)
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, persistError(err, "subject code already exists", "failed to create subject")
	}
	return subject, nil
}

// Update replaces a subject's fields.
func (s *SubjectService) Update(ctx context.Context, id string, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, req.Code, id); err != nil {
		return nil, err
	}
	applySubjectRequest(subject, req)
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, persistError(err, "subject code already exists", "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject that has no groups.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountGroups(ctx, id)
	if err != nil {
		return internalError(err, "failed to verify subject usage")
	}
	if count > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "subject still has groups", map[string]int{"groups": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete subject")
	}
	return nil
}

func (s *SubjectService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, strings.TrimSpace(code), excludeID)
	if err != nil {
		return internalError(err, "failed to check subject code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	}
	return nil
}

func applySubjectRequest(subject *models.Subject, req SubjectRequest) {
	subject.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	subject.Name = strings.TrimSpace(req.Name)
	subject.Abbreviation = strings.TrimSpace(req.Abbreviation)
	subject.TheoryHours = req.TheoryHours
	subject.PracticeHours = req.PracticeHours
	subject.Level = req.Level
	subject.Semester = req.Semester
}
