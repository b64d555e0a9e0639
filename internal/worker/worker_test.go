package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/communityserve/backend/pkg/queue"
)

type memMarker struct {
	sent   []uuid.UUID
	failed map[uuid.UUID]string
}

func newMemMarker() *memMarker {
	return &memMarker{failed: make(map[uuid.UUID]string)}
}

func (m *memMarker) MarkSent(_ context.Context, id uuid.UUID, _ time.Time) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *memMarker) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	m.failed[id] = errMsg
	return nil
}

func emailJob(t *testing.T, payload queue.EmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{
		ID:        uuid.New().String(),
		Type:      queue.JobTypeEmail,
		Payload:   raw,
		CreatedAt: time.Now(),
	}
}

func TestProcess_DeliversAndMarksSent(t *testing.T) {
	marker := newMemMarker()
	var delivered []string
	p := &EmailProcessor{
		logs:   marker,
		send:   func(to, subject, body string) error { delivered = append(delivered, to); return nil },
		logger: zap.NewNop(),
	}

	logID := uuid.New()
	job := emailJob(t, queue.EmailPayload{
		LogID:          logID,
		EmailType:      queue.EmailTypeRegistrationApproved,
		RecipientEmail: "ana@example.edu",
		Subject:        "Registration approved",
		Body:           "hello",
	})

	require.NoError(t, p.Process(context.Background(), job))
	assert.Equal(t, []string{"ana@example.edu"}, delivered)
	assert.Equal(t, []uuid.UUID{logID}, marker.sent)
	assert.Empty(t, marker.failed)
}

func TestProcess_SendFailureMarksFailed(t *testing.T) {
	marker := newMemMarker()
	p := &EmailProcessor{
		logs:   marker,
		send:   func(to, subject, body string) error { return errors.New("relay refused") },
		logger: zap.NewNop(),
	}

	logID := uuid.New()
	job := emailJob(t, queue.EmailPayload{LogID: logID, EmailType: queue.EmailTypeAdminAlert, RecipientEmail: "ops@example.edu"})

	err := p.Process(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, "relay refused", marker.failed[logID])
	assert.Empty(t, marker.sent)
}

func TestProcess_RejectsUnknownJobType(t *testing.T) {
	p := &EmailProcessor{logs: newMemMarker(), send: func(string, string, string) error { return nil }, logger: zap.NewNop()}

	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: queue.JobType("video")})
	assert.Error(t, err)
}
