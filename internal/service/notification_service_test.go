package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/realtime"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
	"github.com/noah-isme/uni-schedule-api/pkg/jobs"
)

type notificationRepoStub struct {
	mu        sync.Mutex
	created   []models.Notification
	createErr error
	markErr   error
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, *n)
	return nil
}

func (s *notificationRepoStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	return s.created, len(s.created), nil
}

func (s *notificationRepoStub) UnreadCount(ctx context.Context, userID string) (int, error) {
	return len(s.created), nil
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, userID, id string) error {
	return s.markErr
}

func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return int64(len(s.created)), nil
}

func (s *notificationRepoStub) Delete(ctx context.Context, userID, id string) error {
	return s.markErr
}

func (s *notificationRepoStub) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.created))
	for _, n := range s.created {
		out = append(out, n.Title)
	}
	return out
}

type publisherStub struct {
	mu       sync.Mutex
	messages map[string][]realtime.Message
}

func (p *publisherStub) Publish(userID string, msg realtime.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = map[string][]realtime.Message{}
	}
	p.messages[userID] = append(p.messages[userID], msg)
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) TryEnqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// recordingNotifier captures notifications for workflow tests.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func TestNotificationServiceNotifyInline(t *testing.T) {
	repo := &notificationRepoStub{}
	pub := &publisherStub{}
	svc := NewNotificationService(repo, pub, nil, nil)

	svc.Notify(context.Background(), models.Notification{UserID: "u1", Type: models.NotificationSystem, Title: "New academic term active"})
	svc.Notify(context.Background(), models.Notification{Title: "dropped without user"})

	require.Len(t, repo.created, 1)
	assert.NotEmpty(t, repo.created[0].ID)
	require.Len(t, pub.messages["u1"], 1)
	assert.Equal(t, "notification", pub.messages["u1"][0].Type)
}

func TestNotificationServiceNotifyQueued(t *testing.T) {
	repo := &notificationRepoStub{}
	queue := &queueStub{}
	svc := NewNotificationService(repo, nil, nil, nil)
	svc.UseQueue(queue)

	svc.Notify(context.Background(), models.Notification{UserID: "u1", Title: "Schedule updated"})
	require.Len(t, queue.jobs, 1)
	assert.Empty(t, repo.created)
	assert.Equal(t, NotificationJobType, queue.jobs[0].Type)

	require.NoError(t, svc.HandleJob(context.Background(), queue.jobs[0]))
	assert.Equal(t, []string{"Schedule updated"}, repo.titles())

	assert.Error(t, svc.HandleJob(context.Background(), jobs.Job{Payload: "garbage"}))
}

func TestNotificationServiceQueueFullFallsBack(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, nil, nil, nil)
	svc.UseQueue(&queueStub{err: jobs.ErrQueueFull})

	svc.Notify(context.Background(), models.Notification{UserID: "u1", Title: "Schedule removed"})
	assert.Equal(t, []string{"Schedule removed"}, repo.titles())
}

func TestNotificationServiceDeliveryFailureIsSwallowed(t *testing.T) {
	repo := &notificationRepoStub{createErr: errors.New("db down")}
	svc := NewNotificationService(repo, nil, nil, nil)

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), models.Notification{UserID: "u1"})
	})
}

func TestNotificationServiceOwnership(t *testing.T) {
	repo := &notificationRepoStub{markErr: sql.ErrNoRows}
	svc := NewNotificationService(repo, nil, nil, nil)

	err := svc.MarkRead(context.Background(), "u2", "n1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "u2", "n1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), models.NotificationFilter{})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
