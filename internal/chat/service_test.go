package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/internal/moderation"
)

type reactionKey struct {
	message uuid.UUID
	user    uuid.UUID
}

type memMessageStore struct {
	msgs      map[uuid.UUID]*models.ChatMessage
	reactions map[reactionKey]models.Reaction
	reads     map[reactionKey]models.ReadMark
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{
		msgs:      make(map[uuid.UUID]*models.ChatMessage),
		reactions: make(map[reactionKey]models.Reaction),
		reads:     make(map[reactionKey]models.ReadMark),
	}
}

func (s *memMessageStore) Create(_ context.Context, msg *models.ChatMessage) error {
	cp := *msg
	s.msgs[msg.ID] = &cp
	return nil
}

func (s *memMessageStore) GetByID(_ context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	msg, ok := s.msgs[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

func (s *memMessageStore) ListByEvent(_ context.Context, eventID uuid.UUID, before time.Time, limit int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, msg := range s.msgs {
		if msg.EventID == eventID && msg.CreatedAt.Before(before) && len(out) < limit {
			cp := *msg
			if cp.IsDeleted {
				cp.Body = ""
				cp.Attachment = nil
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *memMessageStore) SetBody(_ context.Context, id uuid.UUID, body string, editedAt time.Time) error {
	msg, ok := s.msgs[id]
	if !ok || msg.IsDeleted {
		return ErrMessageNotFound
	}
	msg.Body = body
	msg.IsEdited = true
	msg.EditedAt = &editedAt
	return nil
}

func (s *memMessageStore) SoftDelete(_ context.Context, id, deletedBy uuid.UUID, at time.Time) error {
	msg, ok := s.msgs[id]
	if !ok || msg.IsDeleted {
		return ErrMessageNotFound
	}
	msg.IsDeleted = true
	msg.DeletedAt = &at
	msg.DeletedBy = &deletedBy
	return nil
}

func (s *memMessageStore) UpsertReaction(_ context.Context, reaction *models.Reaction) error {
	s.reactions[reactionKey{reaction.MessageID, reaction.UserID}] = *reaction
	return nil
}

func (s *memMessageStore) RemoveReaction(_ context.Context, messageID, userID uuid.UUID) error {
	delete(s.reactions, reactionKey{messageID, userID})
	return nil
}

func (s *memMessageStore) MarkRead(_ context.Context, mark *models.ReadMark) error {
	key := reactionKey{mark.MessageID, mark.UserID}
	if _, ok := s.reads[key]; !ok {
		s.reads[key] = *mark
	}
	return nil
}

type broadcastCall struct {
	eventID uuid.UUID
	kind    string
}

type fakeBroadcaster struct {
	calls []broadcastCall
}

func (b *fakeBroadcaster) Broadcast(eventID uuid.UUID, kind string, _ interface{}) {
	b.calls = append(b.calls, broadcastCall{eventID: eventID, kind: kind})
}

type chatFixture struct {
	svc       *Service
	people    *fakeParticipation
	store     *memMessageStore
	broadcast *fakeBroadcaster
	eventID   uuid.UUID
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	people := newFakeParticipation()
	store := newMemMessageStore()
	broadcast := &fakeBroadcaster{}
	svc := NewService(NewGate(people), store, nil, broadcast, nil, nil, nil)
	return &chatFixture{
		svc:       svc,
		people:    people,
		store:     store,
		broadcast: broadcast,
		eventID:   uuid.New(),
	}
}

func (f *chatFixture) eligibleStudent(t *testing.T) Actor {
	t.Helper()
	id := uuid.New()
	f.people.records[id] = &models.AttendanceRecord{
		EventID:              f.eventID,
		UserID:               id,
		Status:               models.AttendanceAttended,
		RegistrationApproved: true,
	}
	return Actor{ID: id, Role: models.RoleStudent}
}

func TestSend_DeniedWithoutRecord(t *testing.T) {
	f := newChatFixture(t)
	stranger := Actor{ID: uuid.New(), Role: models.RoleStudent}

	_, err := f.svc.Send(context.Background(), f.eventID, stranger, SendInput{Body: "hello"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, f.broadcast.calls)
}

func TestSend_CleanTextPersistsAndBroadcasts(t *testing.T) {
	f := newChatFixture(t)
	student := f.eligibleStudent(t)

	msg, err := f.svc.Send(context.Background(), f.eventID, student, SendInput{Body: "see you at the cleanup site"})
	require.NoError(t, err)
	assert.Equal(t, "see you at the cleanup site", msg.Body)
	assert.Equal(t, models.MessageText, msg.MessageType)

	stored, err := f.store.GetByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.Body, stored.Body)

	require.Len(t, f.broadcast.calls, 1)
	assert.Equal(t, "chat_message", f.broadcast.calls[0].kind)
	assert.Equal(t, f.eventID, f.broadcast.calls[0].eventID)
}

func TestSend_BlockedTextRejected(t *testing.T) {
	f := newChatFixture(t)
	student := f.eligibleStudent(t)

	_, err := f.svc.Send(context.Background(), f.eventID, student, SendInput{Body: "putang ina mo"})
	var blocked *moderation.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, moderation.SeverityHigh, blocked.Severity)
	assert.Equal(t, 90, blocked.Confidence)

	// Nothing stored, nothing broadcast.
	assert.Empty(t, f.store.msgs)
	assert.Empty(t, f.broadcast.calls)
}

func TestSend_EmptyMessageRejected(t *testing.T) {
	f := newChatFixture(t)
	student := f.eligibleStudent(t)

	_, err := f.svc.Send(context.Background(), f.eventID, student, SendInput{Body: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSend_AttachmentWithoutStorageRejected(t *testing.T) {
	f := newChatFixture(t)
	student := f.eligibleStudent(t)

	_, err := f.svc.Send(context.Background(), f.eventID, student, SendInput{
		Attachment: &AttachmentUpload{FileName: "site.jpg", ContentType: "image/jpeg", SizeBytes: 100 << 10},
	})
	assert.ErrorIs(t, err, ErrAttachmentType)
}

func TestEdit_AuthorOnly(t *testing.T) {
	f := newChatFixture(t)
	author := f.eligibleStudent(t)
	other := f.eligibleStudent(t)
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.eventID, author, SendInput{Body: "meet at gate 2"})
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, msg.ID, other, "meet at gate 3")
	assert.ErrorIs(t, err, ErrNotAuthor)

	edited, err := f.svc.Edit(ctx, msg.ID, author, "meet at gate 3")
	require.NoError(t, err)
	assert.Equal(t, "meet at gate 3", edited.Body)
	assert.True(t, edited.IsEdited)
	require.NotNil(t, edited.EditedAt)
}

func TestEdit_BlockedTextRejected(t *testing.T) {
	f := newChatFixture(t)
	author := f.eligibleStudent(t)
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.eventID, author, SendInput{Body: "original"})
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, msg.ID, author, "gago ka")
	var blocked *moderation.BlockedError
	require.ErrorAs(t, err, &blocked)

	stored, err := f.store.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", stored.Body)
}

func TestEditAndDelete_DeniedAfterAccessRevoked(t *testing.T) {
	f := newChatFixture(t)
	author := f.eligibleStudent(t)
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.eventID, author, SendInput{Body: "count me in"})
	require.NoError(t, err)

	// Registration disapproved after posting: the room is closed to the
	// author, own messages included.
	rec := f.people.records[author.ID]
	rec.RegistrationApproved = false
	rec.Status = models.AttendanceDisapproved

	_, err = f.svc.Edit(ctx, msg.ID, author, "count me out")
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.svc.Delete(ctx, msg.ID, author)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.store.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "count me in", stored.Body)
	assert.False(t, stored.IsDeleted)
}

func TestDelete_AuthorStaffAndStrangers(t *testing.T) {
	f := newChatFixture(t)
	author := f.eligibleStudent(t)
	other := f.eligibleStudent(t)
	staff := Actor{ID: uuid.New(), Role: models.RoleStaff}
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.eventID, author, SendInput{Body: "wrong channel"})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, msg.ID, other)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, msg.ID, staff))

	// Soft delete: the row survives with flags set.
	stored := f.store.msgs[msg.ID]
	require.NotNil(t, stored)
	assert.True(t, stored.IsDeleted)
	require.NotNil(t, stored.DeletedBy)
	assert.Equal(t, staff.ID, *stored.DeletedBy)

	// Deleting again is a no-op.
	require.NoError(t, f.svc.Delete(ctx, msg.ID, staff))
}

func TestReact_OneActiveReactionPerUser(t *testing.T) {
	f := newChatFixture(t)
	author := f.eligibleStudent(t)
	reader := f.eligibleStudent(t)
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.eventID, author, SendInput{Body: "we hit 120 hours total"})
	require.NoError(t, err)

	_, err = f.svc.React(ctx, msg.ID, reader, "👍")
	require.NoError(t, err)
	_, err = f.svc.React(ctx, msg.ID, reader, "🎉")
	require.NoError(t, err)

	key := reactionKey{msg.ID, reader.ID}
	assert.Equal(t, "🎉", f.store.reactions[key].Emoji)

	require.NoError(t, f.svc.Unreact(ctx, msg.ID, reader))
	_, ok := f.store.reactions[key]
	assert.False(t, ok)
}

func TestMarkRead_Accumulates(t *testing.T) {
	f := newChatFixture(t)
	author := f.eligibleStudent(t)
	reader := f.eligibleStudent(t)
	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.eventID, author, SendInput{Body: "bring gloves"})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRead(ctx, msg.ID, reader))
	first := f.store.reads[reactionKey{msg.ID, reader.ID}]

	require.NoError(t, f.svc.MarkRead(ctx, msg.ID, reader))
	assert.Equal(t, first, f.store.reads[reactionKey{msg.ID, reader.ID}])
}

func TestList_GateApplied(t *testing.T) {
	f := newChatFixture(t)
	author := f.eligibleStudent(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.eventID, author, SendInput{Body: "first"})
	require.NoError(t, err)

	stranger := Actor{ID: uuid.New(), Role: models.RoleStudent}
	_, err = f.svc.List(ctx, f.eventID, stranger, time.Time{}, 50)
	assert.ErrorIs(t, err, ErrForbidden)

	msgs, err := f.svc.List(ctx, f.eventID, author, time.Time{}, 50)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
