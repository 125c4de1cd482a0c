package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/pkg/jobs"
	"github.com/noah-isme/docrequest-portal/pkg/mailer"
)

const notificationJobType = "recipient_notification"

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationService hands recipient notifications to a background queue.
// Dispatch never blocks or fails the request that triggered it.
type NotificationService struct {
	queue   jobEnqueuer
	sender  mailer.Sender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service. Call SetQueue before use.
func NewNotificationService(sender mailer.Sender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, metrics: metrics, logger: logger}
}

// SetQueue attaches the dispatch queue. The queue's handler is typically HandleJob.
func (s *NotificationService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// NotifyRecipient enqueues the notification; enqueue failures are logged.
func (s *NotificationService) NotifyRecipient(_ context.Context, notification models.RecipientNotification) {
	if s.queue == nil {
		s.logger.Warn("notification queue not configured", zap.String("request_number", notification.RequestNumber))
		s.metrics.RecordNotification(outcomeFailed)
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: notificationJobType, Payload: notification}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue recipient notification", zap.String("request_number", notification.RequestNumber), zap.Error(err))
		s.metrics.RecordNotification(outcomeFailed)
	}
}

// HandleJob delivers one queued notification. Returned errors trigger queue retries.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.RecipientNotification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	err := s.sender.Send(ctx, mailer.Message{
		TemplateID: notification.TemplateID,
		ToEmail:    notification.RecipientEmail,
		ToName:     notification.RecipientName,
		Subject:    fmt.Sprintf("Documents requested: %s", notification.RequestNumber),
		Data:       notification.MergeFields(),
	})
	if err != nil {
		s.metrics.RecordNotification(outcomeFailed)
		return err
	}
	s.metrics.RecordNotification(outcomeOK)
	s.logger.Info("recipient notified", zap.String("request_number", notification.RequestNumber), zap.Int("attempt", job.Attempt))
	return nil
}

// HandleExhausted records a notification the queue gave up on.
func (s *NotificationService) HandleExhausted(job jobs.Job, err error) {
	fields := []zap.Field{zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err)}
	if notification, ok := job.Payload.(models.RecipientNotification); ok {
		fields = append(fields, zap.String("request_number", notification.RequestNumber))
	}
	s.logger.Error("recipient notification dropped", fields...)
	s.metrics.RecordNotification(outcomeDropped)
}
