package chat

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/communityserve/backend/internal/middleware"
	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/internal/moderation"
	"github.com/communityserve/backend/internal/participation"
	"github.com/communityserve/backend/pkg/response"
)

// MaxAttachmentBytes bounds multipart uploads before moderation even looks at
// them. Matches the moderation per-message limit.
const MaxAttachmentBytes = 5 << 20

// SendRequest is the JSON body for a text-only message.
type SendRequest struct {
	Body    string     `json:"body" binding:"required"`
	ReplyTo *uuid.UUID `json:"reply_to"`
}

// EditRequest is the body for a message edit.
type EditRequest struct {
	Body string `json:"body" binding:"required"`
}

// ReactRequest is the body for setting a reaction.
type ReactRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /events/:id/chat?before=<rfc3339>&limit=<n>.
func (h *Handler) List(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "invalid before cursor")
			return
		}
		before = t
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	msgs, err := h.svc.List(c.Request.Context(), eventID, actor(c), before, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, msgs)
}

// Send handles POST /events/:id/chat. JSON bodies carry text only; multipart
// bodies may add one file.
func (h *Handler) Send(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input SendInput
	if isMultipart(c) {
		parsed, ok := h.parseMultipart(c)
		if !ok {
			return
		}
		input = parsed
	} else {
		var req SendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		input = SendInput{Body: req.Body, ReplyTo: req.ReplyTo}
	}

	msg, err := h.svc.Send(c.Request.Context(), eventID, actor(c), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, msg)
}

// Edit handles PUT /chat/:messageId.
func (h *Handler) Edit(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.svc.Edit(c.Request.Context(), messageID, actor(c), req.Body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, msg)
}

// Delete handles DELETE /chat/:messageId.
func (h *Handler) Delete(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), messageID, actor(c)); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// React handles PUT /chat/:messageId/reaction.
func (h *Handler) React(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reaction, err := h.svc.React(c.Request.Context(), messageID, actor(c), req.Emoji)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, reaction)
}

// Unreact handles DELETE /chat/:messageId/reaction.
func (h *Handler) Unreact(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	if err := h.svc.Unreact(c.Request.Context(), messageID, actor(c)); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// MarkRead handles POST /chat/:messageId/read.
func (h *Handler) MarkRead(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), messageID, actor(c)); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// Participants handles GET /events/:id/chat/participants.
func (h *Handler) Participants(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.Participants(c.Request.Context(), eventID, actor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// RequestAccess handles POST /events/:id/chat/access.
func (h *Handler) RequestAccess(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	rec, err := h.svc.RequestAccess(c.Request.Context(), eventID, actor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, rec)
}

func (h *Handler) parseMultipart(c *gin.Context) (SendInput, bool) {
	if err := c.Request.ParseMultipartForm(MaxAttachmentBytes); err != nil {
		response.BadRequest(c, "invalid multipart body")
		return SendInput{}, false
	}
	input := SendInput{Body: c.PostForm("body")}
	if raw := c.PostForm("reply_to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid reply_to")
			return SendInput{}, false
		}
		input.ReplyTo = &id
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// No file part: a multipart text-only message is still valid.
		return input, true
	}
	if fileHeader.Size > MaxAttachmentBytes {
		response.BadRequest(c, "file exceeds the 5 MiB limit")
		return SendInput{}, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return SendInput{}, false
	}
	// Closed by gin when the request ends.
	input.Attachment = &AttachmentUpload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   fileHeader.Size,
		Content:     file,
	}
	return input, true
}

func isMultipart(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == "multipart/form-data"
}

func actor(c *gin.Context) Actor {
	return Actor{
		ID:   c.MustGet(middleware.ContextUserID).(uuid.UUID),
		Role: models.Role(c.MustGet(middleware.ContextUserRole).(string)),
	}
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps chat and participation errors to HTTP statuses. Moderation
// verdicts go out as 422 with the verdict payload so the sender can
// self-correct.
func (h *Handler) writeError(c *gin.Context, err error) {
	var blocked *moderation.BlockedError
	switch {
	case errors.As(err, &blocked):
		response.UnprocessableEntity(c, "content blocked", gin.H{
			"reason":     blocked.Reason,
			"severity":   blocked.Severity,
			"confidence": blocked.Confidence,
		})
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrMessageNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrNotAuthor):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrAttachmentType):
		response.BadRequest(c, err.Error())
	case errors.Is(err, participation.ErrEventNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, participation.ErrAlreadyRegistered),
		errors.Is(err, participation.ErrEventFull),
		errors.Is(err, participation.ErrEventInactive):
		response.Conflict(c, err.Error())
	case errors.Is(err, participation.ErrNotEligible):
		response.Forbidden(c, err.Error())
	default:
		h.logger.Error("chat operation failed", zap.Error(err))
		response.Internal(c, "operation failed")
	}
}
