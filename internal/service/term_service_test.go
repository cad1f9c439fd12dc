package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type termRepoStub struct {
	terms    map[string]*models.AcademicTerm
	exists   bool
	groups   int
	deleted  []string
	activate []string
}

func (s *termRepoStub) List(ctx context.Context, filter models.TermFilter) ([]models.AcademicTerm, int, error) {
	return nil, 0, nil
}

func (s *termRepoStub) FindByID(ctx context.Context, id string) (*models.AcademicTerm, error) {
	term, ok := s.terms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return term, nil
}

func (s *termRepoStub) FindCurrent(ctx context.Context) (*models.AcademicTerm, error) {
	for _, term := range s.terms {
		if term.IsCurrent {
			return term, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *termRepoStub) ExistsByYearAndPeriod(ctx context.Context, year, period int, excludeID string) (bool, error) {
	return s.exists, nil
}

func (s *termRepoStub) Create(ctx context.Context, term *models.AcademicTerm) error {
	term.ID = "term-new"
	return nil
}

func (s *termRepoStub) Update(ctx context.Context, term *models.AcademicTerm) error { return nil }

func (s *termRepoStub) SetCurrent(ctx context.Context, id string) error {
	if _, ok := s.terms[id]; !ok {
		return sql.ErrNoRows
	}
	for termID, term := range s.terms {
		term.IsCurrent = termID == id
	}
	s.activate = append(s.activate, id)
	return nil
}

func (s *termRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *termRepoStub) CountGroups(ctx context.Context, id string) (int, error) {
	return s.groups, nil
}

type teacherAccountsStub struct {
	ids []string
}

func (s *teacherAccountsStub) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	return s.ids, nil
}

func termRequest() TermRequest {
	return TermRequest{
		Name:      "2025-I",
		Year:      2025,
		Period:    1,
		StartDate: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 27, 0, 0, 0, 0, time.UTC),
	}
}

func TestTermServiceCreateValidatesDates(t *testing.T) {
	svc := NewTermService(&termRepoStub{}, nil, nil, nil, nil)

	req := termRequest()
	req.EndDate = req.StartDate
	_, err := svc.Create(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = termRequest()
	req.Period = 3
	_, err = svc.Create(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	term, err := svc.Create(context.Background(), termRequest())
	require.NoError(t, err)
	assert.False(t, term.IsCurrent)
}

func TestTermServiceCreateDuplicate(t *testing.T) {
	svc := NewTermService(&termRepoStub{exists: true}, nil, nil, nil, nil)
	_, err := svc.Create(context.Background(), termRequest())
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTermServiceActivateNotifiesTeachers(t *testing.T) {
	repo := &termRepoStub{terms: map[string]*models.AcademicTerm{
		"old": {ID: "old", Name: "2024-II", IsCurrent: true},
		"new": {ID: "new", Name: "2025-I"},
	}}
	notifier := &recordingNotifier{}
	svc := NewTermService(repo, &teacherAccountsStub{ids: []string{"u1", "u2"}}, notifier, nil, nil)

	term, err := svc.Activate(context.Background(), "new")
	require.NoError(t, err)
	assert.True(t, term.IsCurrent)
	assert.False(t, repo.terms["old"].IsCurrent)

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "New academic term active", notifier.sent[0].Title)
	assert.Equal(t, models.NotificationSystem, notifier.sent[0].Type)
	assert.Equal(t, "u2", notifier.sent[1].UserID)
	assert.JSONEq(t, `{"term_id":"new"}`, string(notifier.sent[0].Data))
}

func TestTermServiceActivateUnknownKeepsCurrent(t *testing.T) {
	repo := &termRepoStub{terms: map[string]*models.AcademicTerm{"old": {ID: "old", IsCurrent: true}}}
	notifier := &recordingNotifier{}
	svc := NewTermService(repo, &teacherAccountsStub{ids: []string{"u1"}}, notifier, nil, nil)

	_, err := svc.Activate(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.True(t, repo.terms["old"].IsCurrent)
	assert.Empty(t, notifier.sent)
}

func TestTermServiceDeleteGuards(t *testing.T) {
	repo := &termRepoStub{terms: map[string]*models.AcademicTerm{
		"cur":  {ID: "cur", IsCurrent: true},
		"past": {ID: "past"},
	}, groups: 4}
	svc := NewTermService(repo, nil, nil, nil, nil)

	err := svc.Delete(context.Background(), "cur")
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "past")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.groups = 0
	require.NoError(t, svc.Delete(context.Background(), "past"))
	assert.Equal(t, []string{"past"}, repo.deleted)
}
