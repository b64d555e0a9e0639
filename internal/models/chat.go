package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType is the kind of content a chat message carries.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageAudio MessageType = "audio"
	MessageVideo MessageType = "video"
	MessageFile  MessageType = "file"
)

// Attachment describes a stored chat file.
type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `json:"storage_key"`
	URL         string `json:"url,omitempty"`
}

// ChatMessage is a message in an event's chat. Messages are never physically
// removed; deletion is a soft-delete that keeps the row.
type ChatMessage struct {
	ID          uuid.UUID   `json:"id"`
	EventID     uuid.UUID   `json:"event_id"`
	AuthorID    uuid.UUID   `json:"author_id"`
	Body        string      `json:"body"` // post-moderation text
	MessageType MessageType `json:"message_type"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	ReplyTo     *uuid.UUID  `json:"reply_to,omitempty"`
	IsEdited    bool        `json:"is_edited"`
	EditedAt    *time.Time  `json:"edited_at,omitempty"`
	IsDeleted   bool        `json:"is_deleted"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
	DeletedBy   *uuid.UUID  `json:"deleted_by,omitempty"`
	Reactions   []Reaction  `json:"reactions,omitempty"`
	ReadBy      []ReadMark  `json:"read_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Reaction is one user's active emoji reaction on a message (one per user).
type Reaction struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	ReactedAt time.Time `json:"reacted_at"`
}

// ReadMark records that a user has read a message. Marks only accumulate.
type ReadMark struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}
