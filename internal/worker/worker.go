package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/communityserve/backend/config"
	"github.com/communityserve/backend/pkg/queue"
)

// Sender delivers one composed mail. The default uses net/smtp; tests swap it.
type Sender func(to, subject, body string) error

// LogMarker records delivery outcomes on email logs. *notify.Repository
// satisfies it.
type LogMarker interface {
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// EmailProcessor consumes email jobs: deliver over SMTP, record the outcome on
// the email log.
type EmailProcessor struct {
	logs   LogMarker
	queue  *queue.Queue
	send   Sender
	logger *zap.Logger
}

// NewEmailProcessor creates an email delivery processor.
func NewEmailProcessor(logs LogMarker, q *queue.Queue, cfg config.EmailConfig, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		logs:   logs,
		queue:  q,
		send:   smtpSender(cfg),
		logger: logger,
	}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := p.send(payload.RecipientEmail, payload.Subject, payload.Body); err != nil {
		if markErr := p.logs.MarkFailed(ctx, payload.LogID, err.Error()); markErr != nil {
			p.logger.Error("mark email failed", zap.Error(markErr), zap.String("log_id", payload.LogID.String()))
		}
		return fmt.Errorf("send: %w", err)
	}

	if err := p.logs.MarkSent(ctx, payload.LogID, time.Now()); err != nil {
		// The mail went out; a logging failure is not worth a duplicate send.
		p.logger.Error("mark email sent", zap.Error(err), zap.String("log_id", payload.LogID.String()))
	}
	p.logger.Info("email delivered",
		zap.String("log_id", payload.LogID.String()),
		zap.String("email_type", payload.EmailType),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

// smtpSender composes and sends plain-text mail over the configured relay.
func smtpSender(cfg config.EmailConfig) Sender {
	return func(to, subject, body string) error {
		if cfg.SMTPHost == "" {
			return fmt.Errorf("smtp host not configured")
		}
		addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
		var auth smtp.Auth
		if cfg.SMTPUser != "" {
			auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
		}

		from := cfg.FromAddress
		var msg strings.Builder
		fmt.Fprintf(&msg, "From: %s <%s>\r\n", cfg.FromName, from)
		fmt.Fprintf(&msg, "To: %s\r\n", to)
		fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
		msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
		msg.WriteString(body)

		return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String()))
	}
}
