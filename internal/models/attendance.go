package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is the attendance/hours track of a participation record.
// It is independent of registration approval: registration approval grants a
// slot and chat eligibility, attendance approval grants hour credit.
type AttendanceStatus string

const (
	AttendancePending     AttendanceStatus = "pending"
	AttendanceAttended    AttendanceStatus = "attended"
	AttendanceApproved    AttendanceStatus = "approved"
	AttendanceDisapproved AttendanceStatus = "disapproved"
	// AttendanceCompleted is a legacy value still present on old records.
	// Nothing writes it anymore, but the chat gate and roster counts accept it.
	AttendanceCompleted AttendanceStatus = "completed"
)

// AttendanceRecord is one user's participation record for one event.
// At most one record exists per (event, user).
type AttendanceRecord struct {
	ID                     uuid.UUID        `json:"id"`
	EventID                uuid.UUID        `json:"event_id"`
	UserID                 uuid.UUID        `json:"user_id"`
	Status                 AttendanceStatus `json:"status"`
	RegistrationApproved   bool             `json:"registration_approved"`
	RegistrationApprovedBy *uuid.UUID       `json:"registration_approved_by,omitempty"`
	RegistrationApprovedAt *time.Time       `json:"registration_approved_at,omitempty"`
	ApprovedBy             *uuid.UUID       `json:"approved_by,omitempty"`
	ApprovedAt             *time.Time       `json:"approved_at,omitempty"`
	Reason                 string           `json:"reason,omitempty"`
	TimeIn                 *time.Time       `json:"time_in,omitempty"`
	TimeOut                *time.Time       `json:"time_out,omitempty"`
	RegisteredAt           time.Time        `json:"registered_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// HourCreditGranted reports whether this record earns hour credit:
// status approved and a completed time-in/time-out pair. Registration
// approval alone never grants credit.
func (r *AttendanceRecord) HourCreditGranted() bool {
	return r.Status == AttendanceApproved && r.TimeIn != nil && r.TimeOut != nil
}

// Participant is an attendance record joined with user display fields for rosters.
type Participant struct {
	Record     AttendanceRecord `json:"record"`
	UserID     uuid.UUID        `json:"user_id"`
	FullName   string           `json:"full_name"`
	Email      string           `json:"email"`
	Department string           `json:"department"`
	Role       Role             `json:"role"`
}
