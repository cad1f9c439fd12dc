package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type groupRepository interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.GroupDetail, error)
	ExistsByNumber(ctx context.Context, subjectID, termID string, number int, excludeID string) (bool, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
	CountEntries(ctx context.Context, id string) (int, error)
}

type subjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type termLookup interface {
	FindByID(ctx context.Context, id string) (*models.AcademicTerm, error)
}

// GroupRequest is the payload for creating or replacing a course group.
type GroupRequest struct {
	SubjectID string `json:"subject_id" validate:"required"`
	TermID    string `json:"term_id" validate:"required"`
	Number    int    `json:"number" validate:"required,min=1"`
	Capacity  int    `json:"capacity" validate:"required,min=1,max=100"`
}

// GroupService manages course groups.
type GroupService struct {
	repo      groupRepository
	subjects  subjectLookup
	terms     termLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs a GroupService.
func NewGroupService(repo groupRepository, subjects subjectLookup, terms termLookup, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, subjects: subjects, terms: terms, validator: validate, logger: logger}
}

// List returns groups with pagination.
func (s *GroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, *models.Pagination, error) {
	groups, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list groups")
	}
	return groups, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get fetches a group by id.
func (s *GroupService) Get(ctx context.Context, id string) (*models.GroupDetail, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "group not found", "failed to load group")
	}
	return group, nil
}

// Create registers a group for a subject in a term.
func (s *GroupService) Create(ctx context.Context, req GroupRequest) (*models.GroupDetail, error) {
	if err := s.check(ctx, req, ""); err != nil {
		return nil, err
	}
	group := &models.Group{SubjectID: req.SubjectID, TermID: req.TermID, Number: req.Number, Capacity: req.Capacity}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, persistError(err, "group number already used for subject in term", "failed to create group")
	}
	return s.Get(ctx, group.ID)
}

// Update replaces a group.
func (s *GroupService) Update(ctx context.Context, id string, req GroupRequest) (*models.GroupDetail, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, req, id); err != nil {
		return nil, err
	}
	group := existing.Group
	group.SubjectID = req.SubjectID
	group.TermID = req.TermID
	group.Number = req.Number
	group.Capacity = req.Capacity
	if err := s.repo.Update(ctx, &group); err != nil {
		return nil, persistError(err, "group number already used for subject in term", "failed to update group")
	}
	return s.Get(ctx, id)
}

// Delete removes a group that has no schedule entries.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountEntries(ctx, id)
	if err != nil {
		return internalError(err, "failed to verify group usage")
	}
	if count > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "group still has schedule entries", map[string]int{"entries": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete group")
	}
	return nil
}

// Unscheduled lists the term's groups that have no entries yet.
func (s *GroupService) Unscheduled(ctx context.Context, termID string) ([]models.GroupDetail, error) {
	groups, _, err := s.repo.List(ctx, models.GroupFilter{TermID: termID, Unscheduled: true, Page: 1, PageSize: 1000})
	if err != nil {
		return nil, internalError(err, "failed to list unscheduled groups")
	}
	return groups, nil
}

func (s *GroupService) check(ctx context.Context, req GroupRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid group payload")
	}
	if s.subjects != nil {
		if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
			return lookupError(err, "subject not found", "failed to load subject")
		}
	}
	if s.terms != nil {
		if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
			return lookupError(err, "term not found", "failed to load term")
		}
	}
	exists, err := s.repo.ExistsByNumber(ctx, req.SubjectID, req.TermID, req.Number, excludeID)
	if err != nil {
		return internalError(err, "failed to check group number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "group number already used for subject in term")
	}
	return nil
}
