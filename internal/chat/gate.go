package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/internal/participation"
)

// Participation is the attendance-side surface the chat gate and service need.
// *participation.Service satisfies it.
type Participation interface {
	GetRecord(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error)
	EnsureStaffEnrollment(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error)
	Join(ctx context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error)
	Participants(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error)
}

// Gate decides who may use an event's chat. Admin and staff always may, and
// are auto-enrolled so they appear in rosters. A student may when their record
// is registration-approved or their attendance track reached attended or
// better. Everyone else is denied.
type Gate struct {
	records Participation
}

// NewGate creates a chat gate backed by the participation service.
func NewGate(records Participation) *Gate {
	return &Gate{records: records}
}

// CanAccess reports whether the user may use the event's chat. For admin and
// staff this enrolls them as a side effect.
func (g *Gate) CanAccess(ctx context.Context, eventID, userID uuid.UUID, role models.Role) (bool, error) {
	switch role {
	case models.RoleAdmin, models.RoleStaff:
		if _, err := g.records.EnsureStaffEnrollment(ctx, eventID, userID); err != nil {
			return false, err
		}
		return true, nil
	case models.RoleStudent:
		rec, err := g.records.GetRecord(ctx, eventID, userID)
		if errors.Is(err, participation.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return studentEligible(rec), nil
	default:
		return false, nil
	}
}

// RequestAccess is the one operation allowed while the gate denies: it joins
// the student into the event, returning a pending or auto-approved record.
// For admin and staff it is the enrollment side effect.
func (g *Gate) RequestAccess(ctx context.Context, eventID, userID uuid.UUID, role models.Role) (*models.AttendanceRecord, error) {
	if role == models.RoleAdmin || role == models.RoleStaff {
		return g.records.EnsureStaffEnrollment(ctx, eventID, userID)
	}
	return g.records.Join(ctx, eventID, userID)
}

func studentEligible(rec *models.AttendanceRecord) bool {
	if rec.RegistrationApproved {
		return true
	}
	switch rec.Status {
	case models.AttendanceApproved, models.AttendanceAttended, models.AttendanceCompleted:
		return true
	}
	return false
}
