package participation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/communityserve/backend/internal/auth"
	"github.com/communityserve/backend/internal/events"
	"github.com/communityserve/backend/internal/models"
)

// EventStore is the event lookup needed by the state machine. A missing event
// is reported as events.ErrNotFound; any other error is a store failure.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// RecordStore persists attendance records. Create must be a conditional insert
// (at most one record per (event, user) even under concurrent calls) and
// Mutate must run fn inside an atomic read-modify-write scoped to that record,
// so concurrent mutations serialize and the loser observes the winner's state.
type RecordStore interface {
	Get(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error)
	Create(ctx context.Context, rec *models.AttendanceRecord) (bool, error)
	Mutate(ctx context.Context, eventID, userID uuid.UUID, fn func(*models.AttendanceRecord) error) (*models.AttendanceRecord, error)
	CountRegistrationApproved(ctx context.Context, eventID uuid.UUID) (int, error)
	CountRoster(ctx context.Context, eventID uuid.UUID) (int, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error)
	SumApprovedHours(ctx context.Context, userID uuid.UUID) (float64, error)
}

// UserDirectory resolves users and receives the hour-credit side effect. A
// missing user is reported as auth.ErrUserNotFound.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	AddHours(ctx context.Context, userID uuid.UUID, hours float64) error
}

// Notifier receives approval notifications. Implementations must not block the
// calling operation on delivery; failures stay inside the notifier.
type Notifier interface {
	RegistrationApproved(ctx context.Context, event *models.Event, user *models.User)
	AttendanceApproved(ctx context.Context, event *models.Event, user *models.User, totalHours float64)
}

// Service is the dual-track participation state machine. The registration
// track (registration_approved) governs slots and chat eligibility; the
// attendance track (status plus the time pair) governs hour credit. Neither
// is ever derived from the other.
type Service struct {
	events EventStore
	store  RecordStore
	users  UserDirectory
	notify Notifier
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the participation service.
func NewService(events EventStore, store RecordStore, users UserDirectory, notify Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events: events,
		store:  store,
		users:  users,
		notify: notify,
		logger: logger,
		now:    time.Now,
	}
}

// Join registers a user for an event. When the event does not require
// approval, registration is approved immediately and the attendance track
// starts at attended; otherwise both tracks start pending.
func (s *Service) Join(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, events.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if !event.IsActive || (event.EndsAt != nil && s.now().After(*event.EndsAt)) {
		return nil, ErrEventInactive
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, ErrNotEligible
	}
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleStudent && !event.OpenToDepartment(user.Department) {
		return nil, ErrNotEligible
	}

	// Capacity counts approved registrations only: pending registrations
	// compete for approval, not for the join itself. The count is advisory
	// (no slot reservation); over-capacity from a concurrent approval is
	// corrected by admins.
	if event.MaxParticipants > 0 {
		approved, err := s.store.CountRegistrationApproved(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if approved >= event.MaxParticipants {
			return nil, ErrEventFull
		}
	}

	rec := &models.AttendanceRecord{
		EventID:              eventID,
		UserID:               userID,
		RegistrationApproved: !event.RequiresApproval,
		RegisteredAt:         s.now(),
	}
	if event.RequiresApproval {
		rec.Status = models.AttendancePending
	} else {
		rec.Status = models.AttendanceAttended
	}

	inserted, err := s.store.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyRegistered
	}
	return rec, nil
}

// ApproveRegistration grants the user's slot and chat eligibility. Idempotent:
// re-approving an approved registration changes nothing and is not an error.
// Approval is where slots are consumed, so capacity is enforced here as well.
func (s *Service) ApproveRegistration(ctx context.Context, eventID, userID, approverID uuid.UUID) (*models.AttendanceRecord, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, events.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if event.MaxParticipants > 0 {
		existing, err := s.store.Get(ctx, eventID, userID)
		if err != nil {
			return nil, err
		}
		if !existing.RegistrationApproved {
			approved, err := s.store.CountRegistrationApproved(ctx, eventID)
			if err != nil {
				return nil, err
			}
			if approved >= event.MaxParticipants {
				return nil, ErrEventFull
			}
		}
	}

	changed := false
	rec, err := s.store.Mutate(ctx, eventID, userID, func(r *models.AttendanceRecord) error {
		if r.RegistrationApproved {
			return nil
		}
		now := s.now()
		r.RegistrationApproved = true
		r.RegistrationApprovedBy = &approverID
		r.RegistrationApprovedAt = &now
		r.Reason = ""
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifyRegistrationApproved(ctx, eventID, userID)
	}
	return rec, nil
}

// DisapproveRegistration revokes the slot. The reason is free text and required.
func (s *Service) DisapproveRegistration(ctx context.Context, eventID, userID, approverID uuid.UUID, reason string) (*models.AttendanceRecord, error) {
	stored, err := ValidateRegistrationReason(reason)
	if err != nil {
		return nil, err
	}
	return s.store.Mutate(ctx, eventID, userID, func(r *models.AttendanceRecord) error {
		now := s.now()
		r.RegistrationApproved = false
		r.RegistrationApprovedBy = &approverID
		r.RegistrationApprovedAt = &now
		r.Reason = stored
		return nil
	})
}

// ReinstateRegistration resets a disapproved registration back to pending so
// it can be re-approved. Re-joining is not a path back; this is.
func (s *Service) ReinstateRegistration(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	return s.store.Mutate(ctx, eventID, userID, func(r *models.AttendanceRecord) error {
		r.RegistrationApproved = false
		r.RegistrationApprovedBy = nil
		r.RegistrationApprovedAt = nil
		r.Reason = ""
		r.Status = models.AttendancePending
		return nil
	})
}

// RecordTimeIn stamps the arrival time. Requires an approved registration;
// rejects a second stamp.
func (s *Service) RecordTimeIn(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	return s.store.Mutate(ctx, eventID, userID, func(r *models.AttendanceRecord) error {
		if !r.RegistrationApproved {
			return ErrNotRegistered
		}
		if r.TimeIn != nil {
			return ErrAlreadyRecorded
		}
		now := s.now()
		r.TimeIn = &now
		return nil
	})
}

// RecordTimeOut stamps the departure time. Requires an approved registration;
// rejects a second stamp.
func (s *Service) RecordTimeOut(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	return s.store.Mutate(ctx, eventID, userID, func(r *models.AttendanceRecord) error {
		if !r.RegistrationApproved {
			return ErrNotRegistered
		}
		if r.TimeOut != nil {
			return ErrAlreadyRecorded
		}
		now := s.now()
		r.TimeOut = &now
		return nil
	})
}

// ApproveAttendance marks the attendance approved and credits the event's
// hours to the user. This is the only operation that grants hour credit, and
// it requires a completed time-in/time-out pair. Idempotent.
func (s *Service) ApproveAttendance(ctx context.Context, eventID, userID, approverID uuid.UUID) (*models.AttendanceRecord, error) {
	changed := false
	rec, err := s.store.Mutate(ctx, eventID, userID, func(r *models.AttendanceRecord) error {
		if r.TimeIn == nil || r.TimeOut == nil {
			return ErrTimeRecordIncomplete
		}
		if r.Status == models.AttendanceApproved {
			return nil
		}
		now := s.now()
		r.Status = models.AttendanceApproved
		r.ApprovedBy = &approverID
		r.ApprovedAt = &now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.creditHours(ctx, eventID, userID)
	}
	return rec, nil
}

// DisapproveAttendance marks the attendance disapproved with a reason from the
// fixed set. Grants no hours.
func (s *Service) DisapproveAttendance(ctx context.Context, eventID, userID, approverID uuid.UUID, reason, detail string) (*models.AttendanceRecord, error) {
	stored, err := ValidateAttendanceReason(reason, detail)
	if err != nil {
		return nil, err
	}
	return s.store.Mutate(ctx, eventID, userID, func(r *models.AttendanceRecord) error {
		now := s.now()
		r.Status = models.AttendanceDisapproved
		r.ApprovedBy = &approverID
		r.ApprovedAt = &now
		r.Reason = stored
		return nil
	})
}

// GetRecord returns the record for (event, user), or ErrRecordNotFound.
func (s *Service) GetRecord(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	return s.store.Get(ctx, eventID, userID)
}

// EnsureStaffEnrollment creates an approved record for an admin or staff
// member entering an event chat, so they appear in rosters. No-op when a
// record already exists.
func (s *Service) EnsureStaffEnrollment(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	if rec, err := s.store.Get(ctx, eventID, userID); err == nil {
		return rec, nil
	}
	now := s.now()
	rec := &models.AttendanceRecord{
		EventID:                eventID,
		UserID:                 userID,
		Status:                 models.AttendanceApproved,
		RegistrationApproved:   true,
		RegistrationApprovedBy: &userID,
		RegistrationApprovedAt: &now,
		RegisteredAt:           now,
	}
	inserted, err := s.store.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Lost a race with another enrollment; read the winner.
		return s.store.Get(ctx, eventID, userID)
	}
	return rec, nil
}

// ApprovedCount returns the roster count: approved registrations plus records
// whose attendance track reached attended or better. This is deliberately
// broader than the capacity predicate used by Join, which counts approved
// registrations only.
func (s *Service) ApprovedCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	return s.store.CountRoster(ctx, eventID)
}

// TotalApprovedHours sums event hours over the user's approved attendance
// records with completed time pairs.
func (s *Service) TotalApprovedHours(ctx context.Context, userID uuid.UUID) (float64, error) {
	return s.store.SumApprovedHours(ctx, userID)
}

// Participants lists an event's attendance records joined with user display
// fields, deduplicated per user keeping the most recent registration.
// Duplicates should not exist while Create enforces uniqueness, but old data
// predates that guarantee.
func (s *Service) Participants(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	latest := make(map[uuid.UUID]int, len(list))
	out := make([]models.Participant, 0, len(list))
	for _, p := range list {
		if i, ok := latest[p.UserID]; ok {
			if p.Record.RegisteredAt.After(out[i].Record.RegisteredAt) {
				out[i] = p
			}
			continue
		}
		latest[p.UserID] = len(out)
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) notifyRegistrationApproved(ctx context.Context, eventID, userID uuid.UUID) {
	if s.notify == nil {
		return
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		s.logger.Warn("load event for notification", zap.Error(err))
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("load user for notification", zap.Error(err))
		return
	}
	s.notify.RegistrationApproved(ctx, event, user)
}

// creditHours applies the hour-credit side effect after an attendance
// approval. Failures are logged, never surfaced: the authoritative total is
// always recomputed from records.
func (s *Service) creditHours(ctx context.Context, eventID, userID uuid.UUID) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		s.logger.Warn("load event for hour credit", zap.Error(err))
		return
	}
	if err := s.users.AddHours(ctx, userID, event.Hours); err != nil {
		s.logger.Error("credit hours",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("event_id", eventID.String()),
		)
	}
	if s.notify == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("load user for notification", zap.Error(err))
		return
	}
	total, err := s.store.SumApprovedHours(ctx, userID)
	if err != nil {
		s.logger.Warn("sum approved hours", zap.Error(err))
	}
	s.notify.AttendanceApproved(ctx, event, user, total)
}
