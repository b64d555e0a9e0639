package chat

import "errors"

var (
	// ErrForbidden means the chat gate denied the operation.
	ErrForbidden = errors.New("chat access denied")
	// ErrMessageNotFound means the message does not exist or is deleted.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotAuthor means the caller may not edit this message.
	ErrNotAuthor = errors.New("only the author can edit this message")
	// ErrEmptyMessage means the message has neither text nor an attachment.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrAttachmentType means the attachment content type is not allowed.
	ErrAttachmentType = errors.New("attachment type not allowed")
)
