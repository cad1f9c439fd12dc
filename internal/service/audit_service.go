package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type auditReader interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

// AuditService browses the audit trail written by the audit middleware and auth flows.
type AuditService struct {
	repo   auditReader
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditReader, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	filter.Resource = strings.ToLower(strings.TrimSpace(filter.Resource))
	filter.Action = strings.TrimSpace(filter.Action)
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list audit logs")
	}
	return logs, models.NewPagination(filter.Page, filter.PageSize, total), nil
}
