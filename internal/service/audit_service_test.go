package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type auditRepoStub struct {
	filter models.AuditFilter
	logs   []models.AuditLog
	err    error
}

func (s *auditRepoStub) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	s.filter = filter
	return s.logs, len(s.logs), s.err
}

func TestAuditServiceListNormalisesFilter(t *testing.T) {
	repo := &auditRepoStub{logs: []models.AuditLog{{ID: "log-1"}, {ID: "log-2"}}}
	svc := NewAuditService(repo, nil)

	logs, pagination, err := svc.List(context.Background(), models.AuditFilter{Resource: " Schedule ", Action: " schedule.delete ", Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Equal(t, "schedule", repo.filter.Resource)
	assert.Equal(t, "schedule.delete", repo.filter.Action)
	assert.Equal(t, 100, repo.filter.PageSize)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 100, TotalCount: 2}, pagination)
}

func TestAuditServiceListRejectsInvertedRange(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, nil)
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)

	_, _, err := svc.List(context.Background(), models.AuditFilter{From: &from, To: &to})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	repo.err = errors.New("db down")
	_, _, err = svc.List(context.Background(), models.AuditFilter{})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
