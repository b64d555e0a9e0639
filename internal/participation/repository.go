package participation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communityserve/backend/internal/models"
)

const recordColumns = `id, event_id, user_id, status, registration_approved,
	registration_approved_by, registration_approved_at, approved_by, approved_at,
	COALESCE(reason,''), time_in, time_out, registered_at, updated_at`

// Repository is the PostgreSQL-backed RecordStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance record repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the record for (event, user).
func (r *Repository) Get(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM attendance_records WHERE event_id = $1 AND user_id = $2`
	rec, err := scanRecord(r.pool.QueryRow(ctx, q, eventID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

// Create inserts a record unless one already exists for (event, user). The
// UNIQUE constraint makes concurrent joins safe: exactly one insert wins.
func (r *Repository) Create(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	const q = `INSERT INTO attendance_records
		(id, event_id, user_id, status, registration_approved, registration_approved_by, registration_approved_at, registered_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, user_id) DO NOTHING
		RETURNING id, updated_at`
	err := r.pool.QueryRow(ctx, q, rec.EventID, rec.UserID, string(rec.Status), rec.RegistrationApproved,
		rec.RegistrationApprovedBy, rec.RegistrationApprovedAt, rec.RegisteredAt).
		Scan(&rec.ID, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert attendance record: %w", err)
	}
	return true, nil
}

// Mutate runs fn against the record inside a transaction holding a row lock,
// so concurrent mutations of the same record serialize.
func (r *Repository) Mutate(ctx context.Context, eventID, userID uuid.UUID, fn func(*models.AttendanceRecord) error) (*models.AttendanceRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	q := `SELECT ` + recordColumns + ` FROM attendance_records WHERE event_id = $1 AND user_id = $2 FOR UPDATE`
	rec, err := scanRecord(tx.QueryRow(ctx, q, eventID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := fn(rec); err != nil {
		return nil, err
	}

	const up = `UPDATE attendance_records SET
		status = $1, registration_approved = $2, registration_approved_by = $3, registration_approved_at = $4,
		approved_by = $5, approved_at = $6, reason = NULLIF($7,''), time_in = $8, time_out = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at`
	if err := tx.QueryRow(ctx, up, string(rec.Status), rec.RegistrationApproved,
		rec.RegistrationApprovedBy, rec.RegistrationApprovedAt, rec.ApprovedBy, rec.ApprovedAt,
		rec.Reason, rec.TimeIn, rec.TimeOut, rec.ID).Scan(&rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update attendance record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// CountRegistrationApproved counts approved registrations; Join's capacity
// check uses this narrow predicate.
func (r *Repository) CountRegistrationApproved(ctx context.Context, eventID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM attendance_records WHERE event_id = $1 AND registration_approved`
	var n int
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&n)
	return n, err
}

// CountRoster counts records visible in participant displays: approved
// registrations or an attendance track at attended or better.
func (r *Repository) CountRoster(ctx context.Context, eventID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM attendance_records
		WHERE event_id = $1 AND (registration_approved OR status IN ('approved','attended','completed'))`
	var n int
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&n)
	return n, err
}

// ListByEvent returns all records for an event joined with user display
// fields, oldest registration first. Deduplication happens in the service.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	const q = `SELECT r.id, r.event_id, r.user_id, r.status, r.registration_approved,
		r.registration_approved_by, r.registration_approved_at, r.approved_by, r.approved_at,
		COALESCE(r.reason,''), r.time_in, r.time_out, r.registered_at, r.updated_at,
		u.full_name, u.email, COALESCE(u.department,''), u.role
		FROM attendance_records r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY r.registered_at`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		var status, role string
		if err := rows.Scan(&p.Record.ID, &p.Record.EventID, &p.Record.UserID, &status, &p.Record.RegistrationApproved,
			&p.Record.RegistrationApprovedBy, &p.Record.RegistrationApprovedAt, &p.Record.ApprovedBy, &p.Record.ApprovedAt,
			&p.Record.Reason, &p.Record.TimeIn, &p.Record.TimeOut, &p.Record.RegisteredAt, &p.Record.UpdatedAt,
			&p.FullName, &p.Email, &p.Department, &role); err != nil {
			return nil, err
		}
		p.Record.Status = models.AttendanceStatus(status)
		p.UserID = p.Record.UserID
		p.Role = models.Role(role)
		list = append(list, p)
	}
	return list, rows.Err()
}

// SumApprovedHours totals event hours for the user's records that earn hour
// credit: approved status with a completed time pair.
func (r *Repository) SumApprovedHours(ctx context.Context, userID uuid.UUID) (float64, error) {
	const q = `SELECT COALESCE(SUM(e.hours), 0)
		FROM attendance_records r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1 AND r.status = 'approved' AND r.time_in IS NOT NULL AND r.time_out IS NOT NULL`
	var total float64
	err := r.pool.QueryRow(ctx, q, userID).Scan(&total)
	return total, err
}

func scanRecord(row pgx.Row) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	var status string
	if err := row.Scan(&rec.ID, &rec.EventID, &rec.UserID, &status, &rec.RegistrationApproved,
		&rec.RegistrationApprovedBy, &rec.RegistrationApprovedAt, &rec.ApprovedBy, &rec.ApprovedAt,
		&rec.Reason, &rec.TimeIn, &rec.TimeOut, &rec.RegisteredAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = models.AttendanceStatus(status)
	return &rec, nil
}
