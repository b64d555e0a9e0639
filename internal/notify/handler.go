package notify

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityserve/backend/pkg/response"
)

// Handler handles notification HTTP endpoints (admin/staff only).
type Handler struct {
	repo *Repository
	svc  *Service
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, svc *Service) *Handler {
	return &Handler{repo: repo, svc: svc}
}

// ListByEvent handles GET /events/:id/emails. Mount behind RequireRole.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	logs, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// ResendRequest is the body for POST /emails/resend.
type ResendRequest struct {
	LogID uuid.UUID `json:"log_id" binding:"required"`
}

// Resend handles POST /emails/resend. Re-queues a logged mail.
func (h *Handler) Resend(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "log_id required")
		return
	}
	log, err := h.svc.Resend(c.Request.Context(), req.LogID)
	if err != nil {
		if errors.Is(err, ErrLogNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.Internal(c, "resend failed")
		return
	}
	response.OK(c, log)
}
