package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communityserve/backend/internal/models"
)

// Repository is the PostgreSQL MessageStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new message.
func (r *Repository) Create(ctx context.Context, msg *models.ChatMessage) error {
	const query = `INSERT INTO chat_messages
		(id, event_id, author_id, body, message_type,
		 attachment_name, attachment_type, attachment_size, attachment_key,
		 reply_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	var name, ctype, key *string
	var size *int64
	if att := msg.Attachment; att != nil {
		name, ctype, key = &att.FileName, &att.ContentType, &att.StorageKey
		size = &att.SizeBytes
	}
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.EventID, msg.AuthorID, msg.Body, msg.MessageType,
		name, ctype, size, key, msg.ReplyTo, msg.CreatedAt,
	)
	return err
}

// GetByID returns a message without its reactions or read marks.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	const query = `SELECT ` + messageColumns + ` FROM chat_messages WHERE id = $1`
	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return msg, err
}

// ListByEvent returns messages created before the cursor, newest first, with
// reactions and read marks attached. Deleted messages keep their row but come
// back with an empty body and no attachment.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, before time.Time, limit int) ([]models.ChatMessage, error) {
	const query = `SELECT ` + messageColumns + ` FROM chat_messages
		WHERE event_id = $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, eventID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	var ids []uuid.UUID
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
		ids = append(ids, msg.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}
	if err := r.attachReactions(ctx, ids, msgs); err != nil {
		return nil, err
	}
	if err := r.attachReadMarks(ctx, ids, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SetBody replaces a message's text and stamps the edit.
func (r *Repository) SetBody(ctx context.Context, id uuid.UUID, body string, editedAt time.Time) error {
	const query = `UPDATE chat_messages
		SET body = $2, is_edited = TRUE, edited_at = $3
		WHERE id = $1 AND is_deleted = FALSE`
	tag, err := r.pool.Exec(ctx, query, id, body, editedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// SoftDelete flags a message deleted. The row is never removed.
func (r *Repository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID, at time.Time) error {
	const query = `UPDATE chat_messages
		SET is_deleted = TRUE, deleted_at = $3, deleted_by = $2
		WHERE id = $1 AND is_deleted = FALSE`
	tag, err := r.pool.Exec(ctx, query, id, deletedBy, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// UpsertReaction sets the user's reaction, replacing a previous one.
func (r *Repository) UpsertReaction(ctx context.Context, reaction *models.Reaction) error {
	const query = `INSERT INTO chat_reactions (message_id, user_id, emoji, reacted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id, user_id)
		DO UPDATE SET emoji = EXCLUDED.emoji, reacted_at = EXCLUDED.reacted_at`
	_, err := r.pool.Exec(ctx, query,
		reaction.MessageID, reaction.UserID, reaction.Emoji, reaction.ReactedAt)
	return err
}

// RemoveReaction deletes the user's reaction, if present.
func (r *Repository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID) error {
	const query = `DELETE FROM chat_reactions WHERE message_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, messageID, userID)
	return err
}

// MarkRead records a read mark. Marks accumulate; duplicates are ignored.
func (r *Repository) MarkRead(ctx context.Context, mark *models.ReadMark) error {
	const query = `INSERT INTO chat_read_receipts (message_id, user_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, mark.MessageID, mark.UserID, mark.ReadAt)
	return err
}

const messageColumns = `id, event_id, author_id,
	CASE WHEN is_deleted THEN '' ELSE body END,
	message_type,
	attachment_name, attachment_type, attachment_size, attachment_key,
	reply_to, is_edited, edited_at, is_deleted, deleted_at, deleted_by, created_at`

func scanMessage(row pgx.Row) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	var name, ctype, key *string
	var size *int64
	err := row.Scan(
		&msg.ID, &msg.EventID, &msg.AuthorID, &msg.Body, &msg.MessageType,
		&name, &ctype, &size, &key,
		&msg.ReplyTo, &msg.IsEdited, &msg.EditedAt,
		&msg.IsDeleted, &msg.DeletedAt, &msg.DeletedBy, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if key != nil && !msg.IsDeleted {
		msg.Attachment = &models.Attachment{
			FileName:    *name,
			ContentType: *ctype,
			SizeBytes:   *size,
			StorageKey:  *key,
		}
	}
	return &msg, nil
}

func (r *Repository) attachReactions(ctx context.Context, ids []uuid.UUID, msgs []models.ChatMessage) error {
	const query = `SELECT message_id, user_id, emoji, reacted_at
		FROM chat_reactions WHERE message_id = ANY($1)
		ORDER BY reacted_at`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	byMessage := make(map[uuid.UUID][]models.Reaction)
	for rows.Next() {
		var re models.Reaction
		if err := rows.Scan(&re.MessageID, &re.UserID, &re.Emoji, &re.ReactedAt); err != nil {
			return err
		}
		byMessage[re.MessageID] = append(byMessage[re.MessageID], re)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range msgs {
		msgs[i].Reactions = byMessage[msgs[i].ID]
	}
	return nil
}

func (r *Repository) attachReadMarks(ctx context.Context, ids []uuid.UUID, msgs []models.ChatMessage) error {
	const query = `SELECT message_id, user_id, read_at
		FROM chat_read_receipts WHERE message_id = ANY($1)
		ORDER BY read_at`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	byMessage := make(map[uuid.UUID][]models.ReadMark)
	for rows.Next() {
		var mark models.ReadMark
		if err := rows.Scan(&mark.MessageID, &mark.UserID, &mark.ReadAt); err != nil {
			return err
		}
		byMessage[mark.MessageID] = append(byMessage[mark.MessageID], mark)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range msgs {
		msgs[i].ReadBy = byMessage[msgs[i].ID]
	}
	return nil
}
