package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type groupRepoStub struct {
	groups  map[string]*models.GroupDetail
	exists  bool
	entries int
	filter  models.GroupFilter
	deleted []string
}

func (s *groupRepoStub) List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, int, error) {
	s.filter = filter
	var out []models.GroupDetail
	for _, g := range s.groups {
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (s *groupRepoStub) FindByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return g, nil
}

func (s *groupRepoStub) ExistsByNumber(ctx context.Context, subjectID, termID string, number int, excludeID string) (bool, error) {
	return s.exists, nil
}

func (s *groupRepoStub) Create(ctx context.Context, group *models.Group) error {
	group.ID = "g-new"
	s.groups[group.ID] = &models.GroupDetail{Group: *group, SubjectName: "Algebra"}
	return nil
}

func (s *groupRepoStub) Update(ctx context.Context, group *models.Group) error {
	s.groups[group.ID].Group = *group
	return nil
}

func (s *groupRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *groupRepoStub) CountEntries(ctx context.Context, id string) (int, error) {
	return s.entries, nil
}

type subjectLookupStub struct{ known map[string]bool }

func (s subjectLookupStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if !s.known[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Subject{ID: id}, nil
}

func TestGroupServiceCreate(t *testing.T) {
	repo := &groupRepoStub{groups: map[string]*models.GroupDetail{}}
	svc := NewGroupService(repo, subjectLookupStub{known: map[string]bool{"sub-1": true}}, nil, nil, nil)

	group, err := svc.Create(context.Background(), GroupRequest{SubjectID: "sub-1", TermID: "term-1", Number: 1, Capacity: 30})
	require.NoError(t, err)
	assert.Equal(t, "Group Algebra - 1", group.Label())

	_, err = svc.Create(context.Background(), GroupRequest{SubjectID: "sub-1", TermID: "term-1", Number: 2, Capacity: 101})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), GroupRequest{SubjectID: "sub-9", TermID: "term-1", Number: 2, Capacity: 20})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	repo.exists = true
	_, err = svc.Create(context.Background(), GroupRequest{SubjectID: "sub-1", TermID: "term-1", Number: 1, Capacity: 20})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestGroupServiceDeleteBlockedByEntries(t *testing.T) {
	repo := &groupRepoStub{groups: map[string]*models.GroupDetail{"g1": {Group: models.Group{ID: "g1"}}}, entries: 2}
	svc := NewGroupService(repo, nil, nil, nil, nil)

	err := svc.Delete(context.Background(), "g1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, map[string]int{"entries": 2}, appErr.Details)

	repo.entries = 0
	require.NoError(t, svc.Delete(context.Background(), "g1"))
	assert.Equal(t, []string{"g1"}, repo.deleted)
}

func TestGroupServiceUnscheduledFilters(t *testing.T) {
	repo := &groupRepoStub{groups: map[string]*models.GroupDetail{}}
	svc := NewGroupService(repo, nil, nil, nil, nil)

	_, err := svc.Unscheduled(context.Background(), "term-1")
	require.NoError(t, err)
	assert.True(t, repo.filter.Unscheduled)
	assert.Equal(t, "term-1", repo.filter.TermID)
}
