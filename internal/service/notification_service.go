package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/realtime"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
	"github.com/noah-isme/uni-schedule-api/pkg/jobs"
)

// NotificationJobType tags queued notification deliveries.
const NotificationJobType = "notification.deliver"

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

type realtimePublisher interface {
	Publish(userID string, msg realtime.Message)
}

type notificationQueue interface {
	TryEnqueue(job jobs.Job) error
}

// Notifier is the dispatch side used by scheduling, term and attendance workflows.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// NotificationService persists notifications and pushes them to connected clients.
type NotificationService struct {
	repo      notificationRepository
	publisher realtimePublisher
	queue     notificationQueue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationService constructs the service. publisher may be nil when websockets are disabled.
func NewNotificationService(repo notificationRepository, publisher realtimePublisher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, publisher: publisher, metrics: metrics, logger: logger}
}

// UseQueue routes Notify through an asynchronous queue whose handler is HandleJob.
func (s *NotificationService) UseQueue(queue notificationQueue) {
	s.queue = queue
}

// Notify schedules delivery of n. Failures are logged and never surface to the caller.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) {
	if n.UserID == "" {
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if s.queue != nil {
		err := s.queue.TryEnqueue(jobs.Job{ID: n.ID, Type: NotificationJobType, Payload: n})
		if err == nil {
			return
		}
		s.logger.Warn("notification queue unavailable, delivering inline", zap.String("user_id", n.UserID), zap.Error(err))
	}
	if err := s.deliver(ctx, &n); err != nil {
		s.logger.Warn("failed to deliver notification", zap.String("user_id", n.UserID), zap.Error(err))
	}
}

// HandleJob is the queue handler for notification deliveries.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	return s.deliver(ctx, &n)
}

// DeadLetter records a notification that exhausted its retries.
func (s *NotificationService) DeadLetter(job jobs.Job, err error) {
	s.metrics.RecordNotification(false)
	s.logger.Error("notification dropped", zap.String("job_id", job.ID), zap.Error(err))
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	s.metrics.RecordNotification(true)
	if s.publisher != nil {
		s.publisher.Publish(n.UserID, realtime.Message{Type: "notification", Data: n})
	}
	return nil
}

// List returns a user's notifications.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	if err := requireUser(filter.UserID); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list notifications")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, internalError(err, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead flags one notification owned by the user as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return lookupError(err, "notification not found", "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flags every unread notification of the user and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	changed, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, internalError(err, "failed to mark notifications read")
	}
	return changed, nil
}

// Delete removes a notification owned by the user.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return lookupError(err, "notification not found", "failed to delete notification")
	}
	return nil
}

// notificationData encodes a JSON payload for the data column, falling back to an empty object.
func notificationData(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return raw
}

// requireUser rejects anonymous callers for per-user operations.
func requireUser(userID string) error {
	if userID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "user context required")
	}
	return nil
}
