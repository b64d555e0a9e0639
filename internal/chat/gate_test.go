package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/internal/participation"
)

type fakeParticipation struct {
	records map[uuid.UUID]*models.AttendanceRecord // by user id, single event
	joined  []uuid.UUID
}

func newFakeParticipation() *fakeParticipation {
	return &fakeParticipation{records: make(map[uuid.UUID]*models.AttendanceRecord)}
}

func (f *fakeParticipation) GetRecord(_ context.Context, _, userID uuid.UUID) (*models.AttendanceRecord, error) {
	rec, ok := f.records[userID]
	if !ok {
		return nil, participation.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeParticipation) EnsureStaffEnrollment(_ context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	if rec, ok := f.records[userID]; ok {
		return rec, nil
	}
	rec := &models.AttendanceRecord{
		ID:                   uuid.New(),
		EventID:              eventID,
		UserID:               userID,
		Status:               models.AttendanceApproved,
		RegistrationApproved: true,
		RegisteredAt:         time.Now(),
	}
	f.records[userID] = rec
	return rec, nil
}

func (f *fakeParticipation) Join(_ context.Context, eventID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	if _, ok := f.records[userID]; ok {
		return nil, participation.ErrAlreadyRegistered
	}
	rec := &models.AttendanceRecord{
		ID:           uuid.New(),
		EventID:      eventID,
		UserID:       userID,
		Status:       models.AttendancePending,
		RegisteredAt: time.Now(),
	}
	f.records[userID] = rec
	f.joined = append(f.joined, userID)
	return rec, nil
}

func (f *fakeParticipation) Participants(_ context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	var list []models.Participant
	for _, rec := range f.records {
		list = append(list, models.Participant{Record: *rec, UserID: rec.UserID})
	}
	return list, nil
}

func TestGate_StudentWithoutRecordDenied(t *testing.T) {
	gate := NewGate(newFakeParticipation())

	ok, err := gate.CanAccess(context.Background(), uuid.New(), uuid.New(), models.RoleStudent)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_StudentEligibility(t *testing.T) {
	eventID := uuid.New()

	cases := []struct {
		name                 string
		status               models.AttendanceStatus
		registrationApproved bool
		want                 bool
	}{
		{"pending on both tracks", models.AttendancePending, false, false},
		{"registration approved only", models.AttendancePending, true, true},
		{"attended only", models.AttendanceAttended, false, true},
		{"approved only", models.AttendanceApproved, false, true},
		{"legacy completed", models.AttendanceCompleted, false, true},
		{"disapproved with approved registration", models.AttendanceDisapproved, true, true},
		{"disapproved on both tracks", models.AttendanceDisapproved, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newFakeParticipation()
			userID := uuid.New()
			p.records[userID] = &models.AttendanceRecord{
				EventID:              eventID,
				UserID:               userID,
				Status:               tc.status,
				RegistrationApproved: tc.registrationApproved,
			}
			gate := NewGate(p)

			ok, err := gate.CanAccess(context.Background(), eventID, userID, models.RoleStudent)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestGate_StaffAlwaysAllowedAndEnrolled(t *testing.T) {
	p := newFakeParticipation()
	gate := NewGate(p)
	eventID := uuid.New()
	staffID := uuid.New()

	ok, err := gate.CanAccess(context.Background(), eventID, staffID, models.RoleStaff)
	require.NoError(t, err)
	assert.True(t, ok)

	// Side effect: the staff member now has an approved roster record.
	rec, ok2 := p.records[staffID]
	require.True(t, ok2)
	assert.True(t, rec.RegistrationApproved)
	assert.Equal(t, models.AttendanceApproved, rec.Status)
}

func TestGate_UnknownRoleDenied(t *testing.T) {
	gate := NewGate(newFakeParticipation())

	ok, err := gate.CanAccess(context.Background(), uuid.New(), uuid.New(), models.Role("visitor"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_RequestAccessJoinsStudent(t *testing.T) {
	p := newFakeParticipation()
	gate := NewGate(p)
	eventID := uuid.New()
	studentID := uuid.New()

	rec, err := gate.RequestAccess(context.Background(), eventID, studentID, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePending, rec.Status)
	assert.Contains(t, p.joined, studentID)

	_, err = gate.RequestAccess(context.Background(), eventID, studentID, models.RoleStudent)
	assert.ErrorIs(t, err, participation.ErrAlreadyRegistered)
}
