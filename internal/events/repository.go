package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communityserve/backend/internal/models"
)

// ErrNotFound marks a lookup for an event id that does not exist.
var ErrNotFound = errors.New("event not found")

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, title, description, location, starts_at, ends_at, hours, max_participants, requires_approval, departments, is_active, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt,
		e.Hours, e.MaxParticipants, e.RequiresApproval, e.Departments, e.IsActive, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, title, description, location, starts_at, ends_at, hours, max_participants, requires_approval, COALESCE(departments, '{}'), is_active, created_by, created_at, updated_at
		FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.Hours, &e.MaxParticipants, &e.RequiresApproval, &e.Departments, &e.IsActive, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns events, optionally only active ones.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.Event, error) {
	q := `SELECT id, title, description, location, starts_at, ends_at, hours, max_participants, requires_approval, COALESCE(departments, '{}'), is_active, created_by, created_at, updated_at
		FROM events`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY starts_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
			&e.Hours, &e.MaxParticipants, &e.RequiresApproval, &e.Departments, &e.IsActive, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update updates event fields. Nil time pointers keep the stored values.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, location string, startsAt, endsAt *time.Time, hours float64, maxParticipants int, requiresApproval, isActive bool) error {
	const q = `UPDATE events SET title = $1, description = $2, location = $3,
		starts_at = COALESCE($4, starts_at), ends_at = COALESCE($5, ends_at),
		hours = $6, max_participants = $7, requires_approval = $8, is_active = $9, updated_at = NOW()
		WHERE id = $10`
	_, err := r.pool.Exec(ctx, q, title, description, location, startsAt, endsAt, hours, maxParticipants, requiresApproval, isActive, id)
	return err
}

// Deactivate marks an event inactive; joins are rejected afterwards.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE events SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
