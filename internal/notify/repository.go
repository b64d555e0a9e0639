package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communityserve/backend/internal/models"
)

// ErrLogNotFound means the email log row does not exist.
var ErrLogNotFound = errors.New("email log not found")

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a queued email log row.
func (r *Repository) Create(ctx context.Context, log *models.EmailLog) error {
	const q = `INSERT INTO email_logs
		(id, event_id, user_id, email_type, recipient_email, subject, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q,
		log.EventID, log.UserID, log.EmailType, log.RecipientEmail, log.Subject, log.Status,
	).Scan(&log.ID, &log.CreatedAt)
}

// GetByID returns one email log.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailLog, error) {
	const q = `SELECT id, event_id, user_id, email_type, recipient_email,
		COALESCE(subject, ''), status, sent_at, COALESCE(error_message, ''), created_at
		FROM email_logs WHERE id = $1`
	var log models.EmailLog
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&log.ID, &log.EventID, &log.UserID, &log.EmailType, &log.RecipientEmail,
		&log.Subject, &log.Status, &log.SentAt, &log.ErrorMessage, &log.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ListByEvent returns email logs for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT id, event_id, user_id, email_type, recipient_email,
		COALESCE(subject, ''), status, sent_at, COALESCE(error_message, ''), created_at
		FROM email_logs
		WHERE event_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var log models.EmailLog
		if err := rows.Scan(
			&log.ID, &log.EventID, &log.UserID, &log.EmailType, &log.RecipientEmail,
			&log.Subject, &log.Status, &log.SentAt, &log.ErrorMessage, &log.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, &log)
	}
	return list, rows.Err()
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE email_logs SET status = $2, sent_at = $3, error_message = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, models.EmailStatusSent, at)
	return err
}

// MarkFailed records a delivery failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE email_logs SET status = $2, error_message = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, models.EmailStatusFailed, errMsg)
	return err
}

// Requeue flips a log back to queued for a resend.
func (r *Repository) Requeue(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE email_logs SET status = $2, error_message = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, models.EmailStatusQueued)
	return err
}
