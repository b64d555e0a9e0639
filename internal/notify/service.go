package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/communityserve/backend/config"
	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/pkg/queue"
)

// LogStore is the email log persistence the service needs. *Repository
// satisfies it.
type LogStore interface {
	Create(ctx context.Context, log *models.EmailLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailLog, error)
	Requeue(ctx context.Context, id uuid.UUID) error
}

// Enqueuer pushes email jobs onto the worker queue. *queue.Queue satisfies it.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Service turns approval decisions into queued notification mail. Every method
// is fire-and-forget: failures are logged and swallowed so the triggering
// operation never depends on delivery. It is the participation Notifier.
type Service struct {
	logs   LogStore
	jobs   Enqueuer
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewService creates the notification service.
func NewService(logs LogStore, jobs Enqueuer, cfg config.EmailConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logs: logs, jobs: jobs, cfg: cfg, logger: logger}
}

// RegistrationApproved queues the "your registration was approved" mail.
func (s *Service) RegistrationApproved(ctx context.Context, event *models.Event, user *models.User) {
	subject := fmt.Sprintf("Registration approved: %s", event.Title)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour registration for %q has been approved. You now have access to the event chat.\n\nEvent starts: %s\nLocation: %s\n",
		user.FullName, event.Title, event.StartsAt.Format("Jan 2, 2006 3:04 PM"), event.Location,
	)
	s.queue(ctx, queue.EmailTypeRegistrationApproved, &event.ID, &user.ID, user.Email, subject, body)
}

// AttendanceApproved queues the "your hours were credited" mail with the
// user's running total.
func (s *Service) AttendanceApproved(ctx context.Context, event *models.Event, user *models.User, totalHours float64) {
	subject := fmt.Sprintf("Attendance approved: %s", event.Title)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour attendance at %q has been approved and %.1f hours were credited.\nYour total approved community service hours: %.1f\n",
		user.FullName, event.Title, event.Hours, totalHours,
	)
	s.queue(ctx, queue.EmailTypeAttendanceApproved, &event.ID, &user.ID, user.Email, subject, body)
}

// AdminAlert queues a system alert mail to the configured admin address.
func (s *Service) AdminAlert(ctx context.Context, subject, body string) {
	if s.cfg.AdminAddress == "" {
		s.logger.Debug("admin alert dropped, no admin address configured", zap.String("subject", subject))
		return
	}
	s.queue(ctx, queue.EmailTypeAdminAlert, nil, nil, s.cfg.AdminAddress, subject, body)
}

// Resend flips a logged mail back to queued and enqueues a fresh job. Unlike
// the approval hooks this returns its error, since it is a direct staff action.
func (s *Service) Resend(ctx context.Context, logID uuid.UUID) (*models.EmailLog, error) {
	log, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		return nil, err
	}
	if err := s.logs.Requeue(ctx, log.ID); err != nil {
		return nil, err
	}
	body := fmt.Sprintf("This is a re-send of an earlier notification: %s\n", log.Subject)
	if err := s.jobs.EnqueueEmail(ctx, queue.EmailPayload{
		LogID:          log.ID,
		EmailType:      log.EmailType,
		EventID:        log.EventID,
		UserID:         log.UserID,
		RecipientEmail: log.RecipientEmail,
		Subject:        log.Subject,
		Body:           body,
	}); err != nil {
		return nil, err
	}
	log.Status = models.EmailStatusQueued
	return log, nil
}

func (s *Service) queue(ctx context.Context, emailType string, eventID, userID *uuid.UUID, recipient, subject, body string) {
	log := &models.EmailLog{
		EventID:        eventID,
		UserID:         userID,
		EmailType:      emailType,
		RecipientEmail: recipient,
		Subject:        subject,
		Status:         models.EmailStatusQueued,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		s.logger.Error("create email log", zap.Error(err), zap.String("email_type", emailType))
		return
	}
	if err := s.jobs.EnqueueEmail(ctx, queue.EmailPayload{
		LogID:          log.ID,
		EmailType:      emailType,
		EventID:        eventID,
		UserID:         userID,
		RecipientEmail: recipient,
		Subject:        subject,
		Body:           body,
	}); err != nil {
		s.logger.Error("enqueue email", zap.Error(err), zap.String("email_type", emailType))
	}
}
