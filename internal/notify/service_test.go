package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityserve/backend/config"
	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/pkg/queue"
)

type memLogStore struct {
	logs      map[uuid.UUID]*models.EmailLog
	createErr error
}

func newMemLogStore() *memLogStore {
	return &memLogStore{logs: make(map[uuid.UUID]*models.EmailLog)}
}

func (s *memLogStore) Create(_ context.Context, log *models.EmailLog) error {
	if s.createErr != nil {
		return s.createErr
	}
	log.ID = uuid.New()
	log.CreatedAt = time.Now()
	cp := *log
	s.logs[log.ID] = &cp
	return nil
}

func (s *memLogStore) GetByID(_ context.Context, id uuid.UUID) (*models.EmailLog, error) {
	log, ok := s.logs[id]
	if !ok {
		return nil, ErrLogNotFound
	}
	cp := *log
	return &cp, nil
}

func (s *memLogStore) Requeue(_ context.Context, id uuid.UUID) error {
	log, ok := s.logs[id]
	if !ok {
		return ErrLogNotFound
	}
	log.Status = models.EmailStatusQueued
	return nil
}

type memEnqueuer struct {
	payloads []queue.EmailPayload
	err      error
}

func (e *memEnqueuer) EnqueueEmail(_ context.Context, payload queue.EmailPayload) error {
	if e.err != nil {
		return e.err
	}
	e.payloads = append(e.payloads, payload)
	return nil
}

func testEvent() *models.Event {
	return &models.Event{
		ID:       uuid.New(),
		Title:    "Tree Planting",
		Hours:    5,
		StartsAt: time.Now().Add(48 * time.Hour),
		Location: "Riverside Park",
	}
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), FullName: "Ana Reyes", Email: "ana@example.edu"}
}

func TestRegistrationApproved_LogsAndEnqueues(t *testing.T) {
	logs := newMemLogStore()
	jobs := &memEnqueuer{}
	svc := NewService(logs, jobs, config.EmailConfig{}, nil)

	svc.RegistrationApproved(context.Background(), testEvent(), testUser())

	require.Len(t, jobs.payloads, 1)
	p := jobs.payloads[0]
	assert.Equal(t, queue.EmailTypeRegistrationApproved, p.EmailType)
	assert.Equal(t, "ana@example.edu", p.RecipientEmail)
	assert.NotEqual(t, uuid.Nil, p.LogID)

	log, err := logs.GetByID(context.Background(), p.LogID)
	require.NoError(t, err)
	assert.Equal(t, models.EmailStatusQueued, log.Status)
}

func TestAttendanceApproved_CarriesHourTotal(t *testing.T) {
	logs := newMemLogStore()
	jobs := &memEnqueuer{}
	svc := NewService(logs, jobs, config.EmailConfig{}, nil)

	svc.AttendanceApproved(context.Background(), testEvent(), testUser(), 23.5)

	require.Len(t, jobs.payloads, 1)
	assert.Contains(t, jobs.payloads[0].Body, "23.5")
	assert.Contains(t, jobs.payloads[0].Body, "5.0 hours")
}

func TestNotify_FailuresAreSwallowed(t *testing.T) {
	t.Run("log store down", func(t *testing.T) {
		logs := newMemLogStore()
		logs.createErr = errors.New("db down")
		jobs := &memEnqueuer{}
		svc := NewService(logs, jobs, config.EmailConfig{}, nil)

		// Must not panic or enqueue; the caller never sees the failure.
		svc.RegistrationApproved(context.Background(), testEvent(), testUser())
		assert.Empty(t, jobs.payloads)
	})

	t.Run("queue down", func(t *testing.T) {
		logs := newMemLogStore()
		jobs := &memEnqueuer{err: errors.New("redis down")}
		svc := NewService(logs, jobs, config.EmailConfig{}, nil)

		svc.AttendanceApproved(context.Background(), testEvent(), testUser(), 5)
		assert.Len(t, logs.logs, 1)
	})
}

func TestAdminAlert_RequiresConfiguredAddress(t *testing.T) {
	logs := newMemLogStore()
	jobs := &memEnqueuer{}

	svc := NewService(logs, jobs, config.EmailConfig{}, nil)
	svc.AdminAlert(context.Background(), "disk almost full", "details")
	assert.Empty(t, jobs.payloads)

	svc = NewService(logs, jobs, config.EmailConfig{AdminAddress: "ops@example.edu"}, nil)
	svc.AdminAlert(context.Background(), "disk almost full", "details")
	require.Len(t, jobs.payloads, 1)
	assert.Equal(t, queue.EmailTypeAdminAlert, jobs.payloads[0].EmailType)
	assert.Equal(t, "ops@example.edu", jobs.payloads[0].RecipientEmail)
}

func TestResend_RequeuesExistingLog(t *testing.T) {
	logs := newMemLogStore()
	jobs := &memEnqueuer{}
	svc := NewService(logs, jobs, config.EmailConfig{}, nil)

	svc.RegistrationApproved(context.Background(), testEvent(), testUser())
	require.Len(t, jobs.payloads, 1)
	logID := jobs.payloads[0].LogID

	// Simulate a failed delivery, then resend.
	logs.logs[logID].Status = models.EmailStatusFailed

	log, err := svc.Resend(context.Background(), logID)
	require.NoError(t, err)
	assert.Equal(t, models.EmailStatusQueued, log.Status)
	assert.Len(t, jobs.payloads, 2)

	_, err = svc.Resend(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrLogNotFound)
}
