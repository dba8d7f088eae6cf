package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fixify-hostel/fixify-api/pkg/config"
	"github.com/fixify-hostel/fixify-api/pkg/jobs"
	"github.com/fixify-hostel/fixify-api/pkg/mailer"
)

const jobTypeEmail = "email"

// Notice is an email addressed to one recipient.
type Notice struct {
	To      string
	Subject string
	Body    string
}

// NotificationService delivers notices asynchronously. Delivery is best
// effort: failures are retried by the queue and never reach the caller.
type NotificationService struct {
	queue   *jobs.Queue
	mailer  mailer.Mailer
	metrics *MetricsService
	logger  *zap.Logger
}

func NewNotificationService(m mailer.Mailer, metrics *MetricsService, cfg config.NotifyConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{mailer: m, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnResult: func(_ jobs.Job, err error, final bool) {
			if final {
				metrics.NotificationResult(err)
			}
		},
	})
	return s
}

func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }
func (s *NotificationService) Stop()                    { s.queue.Stop() }

// Notify queues n for delivery.
func (s *NotificationService) Notify(n Notice) {
	if s == nil || s.mailer == nil || !s.mailer.Enabled() || n.To == "" {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobTypeEmail, Payload: n}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification dropped", zap.String("to", n.To), zap.String("subject", n.Subject), zap.Error(err))
		s.metrics.NotificationResult(err)
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notice)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return s.mailer.Send(ctx, mailer.Message{To: n.To, Subject: n.Subject, TextBody: n.Body})
}
