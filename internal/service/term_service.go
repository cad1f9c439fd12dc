package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type termRepository interface {
	List(ctx context.Context, filter models.TermFilter) ([]models.AcademicTerm, int, error)
	FindByID(ctx context.Context, id string) (*models.AcademicTerm, error)
	FindCurrent(ctx context.Context) (*models.AcademicTerm, error)
	ExistsByYearAndPeriod(ctx context.Context, year, period int, excludeID string) (bool, error)
	Create(ctx context.Context, term *models.AcademicTerm) error
	Update(ctx context.Context, term *models.AcademicTerm) error
	SetCurrent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CountGroups(ctx context.Context, id string) (int, error)
}

type activeTeacherAccounts interface {
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// TermRequest describes the payload for creating or replacing academic terms.
type TermRequest struct {
	Name      string    `json:"name" validate:"required,max=100"`
	Year      int       `json:"year" validate:"required,min=2000,max=2100"`
	Period    int       `json:"period" validate:"required,oneof=1 2"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// TermService orchestrates academic term workflows.
type TermService struct {
	repo      termRepository
	teachers  activeTeacherAccounts
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermService creates a new term service instance.
func NewTermService(repo termRepository, teachers activeTeacherAccounts, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{repo: repo, teachers: teachers, notifier: notifier, validator: validate, logger: logger}
}

// List returns paginated terms.
func (s *TermService) List(ctx context.Context, filter models.TermFilter) ([]models.AcademicTerm, *models.Pagination, error) {
	terms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list terms")
	}
	return terms, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get fetches a term by id.
func (s *TermService) Get(ctx context.Context, id string) (*models.AcademicTerm, error) {
	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "term not found", "failed to load term")
	}
	return term, nil
}

// Current returns the term flagged as current.
func (s *TermService) Current(ctx context.Context) (*models.AcademicTerm, error) {
	term, err := s.repo.FindCurrent(ctx)
	if err != nil {
		return nil, lookupError(err, "no current term", "failed to load current term")
	}
	return term, nil
}

// Create registers a term. New terms are never current until activated.
func (s *TermService) Create(ctx context.Context, req TermRequest) (*models.AcademicTerm, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.Year, req.Period, ""); err != nil {
		return nil, err
	}
	term := &models.AcademicTerm{}
	applyTermRequest(term, req)
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, persistError(err, "term already exists for year and period", "failed to create term")
	}
	return term, nil
}

// Update replaces descriptive fields of a term.
func (s *TermService) Update(ctx context.Context, id string, req TermRequest) (*models.AcademicTerm, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	term, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.Year, req.Period, id); err != nil {
		return nil, err
	}
	applyTermRequest(term, req)
	if err := s.repo.Update(ctx, term); err != nil {
		return nil, persistError(err, "term already exists for year and period", "failed to update term")
	}
	return term, nil
}

// Delete removes a term that has no groups. The current term cannot be deleted.
func (s *TermService) Delete(ctx context.Context, id string) error {
	term, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if term.IsCurrent {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "current term cannot be deleted")
	}
	count, err := s.repo.CountGroups(ctx, id)
	if err != nil {
		return internalError(err, "failed to verify term usage")
	}
	if count > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "term still has groups", map[string]int{"groups": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete term")
	}
	return nil
}

// Activate makes id the only current term and tells every active teacher.
func (s *TermService) Activate(ctx context.Context, id string) (*models.AcademicTerm, error) {
	if err := s.repo.SetCurrent(ctx, id); err != nil {
		return nil, lookupError(err, "term not found", "failed to activate term")
	}
	term, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, term)
	return term, nil
}

func (s *TermService) announce(ctx context.Context, term *models.AcademicTerm) {
	if s.notifier == nil || s.teachers == nil {
		return
	}
	userIDs, err := s.teachers.ListActiveUserIDs(ctx)
	if err != nil {
		s.logger.Warn("failed to list teachers for term announcement", zap.String("term_id", term.ID), zap.Error(err))
		return
	}
	message := fmt.Sprintf("%s is now the active term (%s to %s).", term.Name, term.StartDate.Format("2006-01-02"), term.EndDate.Format("2006-01-02"))
	data := notificationData(map[string]string{"term_id": term.ID})
	for _, userID := range userIDs {
		s.notifier.Notify(ctx, models.Notification{
			UserID:  userID,
			Type:    models.NotificationSystem,
			Title:   "New academic term active",
			Message: message,
			Data:    data,
		})
	}
}

func (s *TermService) validate(req TermRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid term payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	return nil
}

func (s *TermService) ensureUnique(ctx context.Context, year, period int, excludeID string) error {
	exists, err := s.repo.ExistsByYearAndPeriod(ctx, year, period, excludeID)
	if err != nil {
		return internalError(err, "failed to check term uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "term already exists for year and period")
	}
	return nil
}

func applyTermRequest(term *models.AcademicTerm, req TermRequest) {
	term.Name = strings.TrimSpace(req.Name)
	term.Year = req.Year
	term.Period = req.Period
	term.StartDate = req.StartDate
	term.EndDate = req.EndDate
}
