package chat

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/internal/moderation"
)

// MessageStore persists chat messages, reactions and read marks.
type MessageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, before time.Time, limit int) ([]models.ChatMessage, error)
	SetBody(ctx context.Context, id uuid.UUID, body string, editedAt time.Time) error
	SoftDelete(ctx context.Context, id, deletedBy uuid.UUID, at time.Time) error
	UpsertReaction(ctx context.Context, reaction *models.Reaction) error
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID) error
	MarkRead(ctx context.Context, mark *models.ReadMark) error
}

// AttachmentStore holds moderated chat files. *storage.S3 satisfies it.
type AttachmentStore interface {
	UploadAttachment(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	PresignDownloadURL(ctx context.Context, key string) (string, error)
	DeleteAttachment(ctx context.Context, key string) error
}

// Broadcaster fans a chat event out to connected clients. Implementations must
// not block; delivery is best effort.
type Broadcaster interface {
	Broadcast(eventID uuid.UUID, kind string, payload interface{})
}

// KeyFunc builds the storage key for an attachment. storage.AttachmentKey has
// this shape.
type KeyFunc func(eventID, messageID, filename string) string

// TypeFunc reports whether a content type is allowed for attachments.
// storage.ValidAttachmentType has this shape.
type TypeFunc func(contentType string) bool

// Actor identifies the caller of a chat operation.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// AttachmentUpload is an incoming file for a message.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Content     io.Reader
}

// SendInput is the content of a new message.
type SendInput struct {
	Body       string
	ReplyTo    *uuid.UUID
	Attachment *AttachmentUpload
}

// Service is the chat message service: every operation passes the gate first,
// and message content passes moderation before it is persisted.
type Service struct {
	gate      *Gate
	store     MessageStore
	files     AttachmentStore // nil when attachment storage is not configured
	broadcast Broadcaster     // nil in tests
	key       KeyFunc
	typeOK    TypeFunc
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the chat service.
func NewService(gate *Gate, store MessageStore, files AttachmentStore, broadcast Broadcaster, key KeyFunc, typeOK TypeFunc, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gate:      gate,
		store:     store,
		files:     files,
		broadcast: broadcast,
		key:       key,
		typeOK:    typeOK,
		logger:    logger,
		now:       time.Now,
	}
}

// Send moderates and persists a new message, then broadcasts it. Text that
// trips the filter, or a blocked image attachment, rejects the whole message
// with a moderation.BlockedError carrying the verdict.
func (s *Service) Send(ctx context.Context, eventID uuid.UUID, actor Actor, input SendInput) (*models.ChatMessage, error) {
	if err := s.requireAccess(ctx, eventID, actor); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Body)
	if body == "" && input.Attachment == nil {
		return nil, ErrEmptyMessage
	}

	if body != "" {
		verdict := moderation.FilterText(body)
		if verdict.Blocked {
			return nil, &moderation.BlockedError{
				Reason:     verdict.Category,
				Severity:   verdict.Severity,
				Confidence: verdict.Confidence,
			}
		}
		body = verdict.Cleaned
	}

	msg := &models.ChatMessage{
		ID:          uuid.New(),
		EventID:     eventID,
		AuthorID:    actor.ID,
		Body:        body,
		MessageType: models.MessageText,
		ReplyTo:     input.ReplyTo,
		CreatedAt:   s.now(),
	}

	if att := input.Attachment; att != nil {
		stored, err := s.storeAttachment(ctx, msg, att)
		if err != nil {
			return nil, err
		}
		msg.Attachment = stored
		msg.MessageType = messageTypeFor(att.ContentType)
	}

	if err := s.store.Create(ctx, msg); err != nil {
		if msg.Attachment != nil && s.files != nil {
			// The message never existed; don't orphan the object.
			if derr := s.files.DeleteAttachment(ctx, msg.Attachment.StorageKey); derr != nil {
				s.logger.Warn("delete orphaned attachment", zap.Error(derr))
			}
		}
		return nil, err
	}

	s.publish(eventID, "chat_message", msg)
	return msg, nil
}

// storeAttachment moderates an upload and streams it to storage. Image files
// go through the file filter; non-image types are bounded by the allowed-type
// table only.
func (s *Service) storeAttachment(ctx context.Context, msg *models.ChatMessage, att *AttachmentUpload) (*models.Attachment, error) {
	if s.files == nil {
		return nil, ErrAttachmentType
	}
	if !s.typeOK(att.ContentType) {
		return nil, ErrAttachmentType
	}
	if strings.HasPrefix(strings.ToLower(att.ContentType), "image/") {
		verdict := moderation.FilterFile(moderation.FileMeta{
			FileName:    att.FileName,
			ContentType: att.ContentType,
			SizeBytes:   att.SizeBytes,
		})
		if verdict.Blocked {
			return nil, &moderation.BlockedError{
				Reason:     verdict.Reason,
				Severity:   moderation.SeverityHigh,
				Confidence: verdict.Confidence,
			}
		}
	}

	key := s.key(msg.EventID.String(), msg.ID.String(), att.FileName)
	storedKey, err := s.files.UploadAttachment(ctx, key, att.ContentType, att.Content, att.SizeBytes)
	if err != nil {
		return nil, err
	}
	stored := &models.Attachment{
		FileName:    att.FileName,
		ContentType: att.ContentType,
		SizeBytes:   att.SizeBytes,
		StorageKey:  storedKey,
	}
	if url, err := s.files.PresignDownloadURL(ctx, storedKey); err == nil {
		stored.URL = url
	} else {
		s.logger.Warn("presign attachment", zap.Error(err))
	}
	return stored, nil
}

// Edit replaces the body of the caller's own message. The new text passes the
// same filter as a fresh send.
func (s *Service) Edit(ctx context.Context, messageID uuid.UUID, actor Actor, body string) (*models.ChatMessage, error) {
	msg, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, ErrMessageNotFound
	}
	if msg.AuthorID != actor.ID {
		return nil, ErrNotAuthor
	}
	if err := s.requireAccess(ctx, msg.EventID, actor); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	verdict := moderation.FilterText(body)
	if verdict.Blocked {
		return nil, &moderation.BlockedError{
			Reason:     verdict.Category,
			Severity:   verdict.Severity,
			Confidence: verdict.Confidence,
		}
	}

	now := s.now()
	if err := s.store.SetBody(ctx, messageID, verdict.Cleaned, now); err != nil {
		return nil, err
	}
	msg.Body = verdict.Cleaned
	msg.IsEdited = true
	msg.EditedAt = &now

	s.publish(msg.EventID, "chat_edited", msg)
	return msg, nil
}

// Delete soft-deletes a message. Allowed for the author, admins and staff.
// The row stays; only the flags change.
func (s *Service) Delete(ctx context.Context, messageID uuid.UUID, actor Actor) error {
	msg, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		return nil
	}
	if msg.AuthorID != actor.ID && actor.Role != models.RoleAdmin && actor.Role != models.RoleStaff {
		return ErrForbidden
	}
	if err := s.requireAccess(ctx, msg.EventID, actor); err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, messageID, actor.ID, s.now()); err != nil {
		return err
	}
	s.publish(msg.EventID, "chat_deleted", map[string]interface{}{
		"message_id": messageID,
		"deleted_by": actor.ID,
	})
	return nil
}

// React sets the caller's reaction on a message, replacing any previous one.
// One active reaction per user per message.
func (s *Service) React(ctx context.Context, messageID uuid.UUID, actor Actor, emoji string) (*models.Reaction, error) {
	msg, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, ErrMessageNotFound
	}
	if err := s.requireAccess(ctx, msg.EventID, actor); err != nil {
		return nil, err
	}
	reaction := &models.Reaction{
		MessageID: messageID,
		UserID:    actor.ID,
		Emoji:     emoji,
		ReactedAt: s.now(),
	}
	if err := s.store.UpsertReaction(ctx, reaction); err != nil {
		return nil, err
	}
	s.publish(msg.EventID, "chat_reaction", reaction)
	return reaction, nil
}

// Unreact removes the caller's reaction on a message, if any.
func (s *Service) Unreact(ctx context.Context, messageID uuid.UUID, actor Actor) error {
	msg, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, msg.EventID, actor); err != nil {
		return err
	}
	if err := s.store.RemoveReaction(ctx, messageID, actor.ID); err != nil {
		return err
	}
	s.publish(msg.EventID, "chat_reaction_removed", map[string]interface{}{
		"message_id": messageID,
		"user_id":    actor.ID,
	})
	return nil
}

// MarkRead records that the caller has read a message. Marks only accumulate;
// re-reading is a no-op.
func (s *Service) MarkRead(ctx context.Context, messageID uuid.UUID, actor Actor) error {
	msg, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, msg.EventID, actor); err != nil {
		return err
	}
	return s.store.MarkRead(ctx, &models.ReadMark{
		MessageID: messageID,
		UserID:    actor.ID,
		ReadAt:    s.now(),
	})
}

// List returns the event's messages older than before, newest first, up to
// limit. Deleted messages come back with flags set and an empty body so
// clients can render tombstones.
func (s *Service) List(ctx context.Context, eventID uuid.UUID, actor Actor, before time.Time, limit int) ([]models.ChatMessage, error) {
	if err := s.requireAccess(ctx, eventID, actor); err != nil {
		return nil, err
	}
	if before.IsZero() {
		before = s.now()
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	msgs, err := s.store.ListByEvent(ctx, eventID, before, limit)
	if err != nil {
		return nil, err
	}
	if s.files != nil {
		for i := range msgs {
			att := msgs[i].Attachment
			if att == nil || msgs[i].IsDeleted {
				continue
			}
			url, err := s.files.PresignDownloadURL(ctx, att.StorageKey)
			if err != nil {
				s.logger.Warn("presign attachment", zap.Error(err))
				continue
			}
			att.URL = url
		}
	}
	return msgs, nil
}

// Participants returns the event roster, gate applied.
func (s *Service) Participants(ctx context.Context, eventID uuid.UUID, actor Actor) ([]models.Participant, error) {
	if err := s.requireAccess(ctx, eventID, actor); err != nil {
		return nil, err
	}
	return s.gate.records.Participants(ctx, eventID)
}

// RequestAccess joins the caller into the event so the gate will admit them.
func (s *Service) RequestAccess(ctx context.Context, eventID uuid.UUID, actor Actor) (*models.AttendanceRecord, error) {
	return s.gate.RequestAccess(ctx, eventID, actor.ID, actor.Role)
}

func (s *Service) requireAccess(ctx context.Context, eventID uuid.UUID, actor Actor) error {
	ok, err := s.gate.CanAccess(ctx, eventID, actor.ID, actor.Role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *Service) publish(eventID uuid.UUID, kind string, payload interface{}) {
	if s.broadcast == nil {
		return
	}
	s.broadcast.Broadcast(eventID, kind, payload)
}

func messageTypeFor(contentType string) models.MessageType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MessageImage
	case strings.HasPrefix(contentType, "audio/"):
		return models.MessageAudio
	case strings.HasPrefix(contentType, "video/"):
		return models.MessageVideo
	default:
		return models.MessageFile
	}
}
