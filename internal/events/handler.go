package events

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityserve/backend/internal/middleware"
	"github.com/communityserve/backend/internal/models"
	"github.com/communityserve/backend/pkg/response"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title            string     `json:"title" binding:"required"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	StartsAt         time.Time  `json:"starts_at" binding:"required"`
	EndsAt           *time.Time `json:"ends_at"`
	Hours            float64    `json:"hours" binding:"required,gt=0"`
	MaxParticipants  int        `json:"max_participants" binding:"gte=0"`
	RequiresApproval bool       `json:"requires_approval"`
	Departments      []string   `json:"departments"`
}

// UpdateRequest is the body for PATCH /events/:id. Zero values are applied as-is
// except the time fields, which keep stored values when omitted.
type UpdateRequest struct {
	Title            string     `json:"title" binding:"required"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
	Hours            float64    `json:"hours" binding:"required,gt=0"`
	MaxParticipants  int        `json:"max_participants" binding:"gte=0"`
	RequiresApproval bool       `json:"requires_approval"`
	IsActive         bool       `json:"is_active"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Create handles POST /events (admin/staff).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	e := &models.Event{
		Title:            req.Title,
		Description:      req.Description,
		Location:         req.Location,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		Hours:            req.Hours,
		MaxParticipants:  req.MaxParticipants,
		RequiresApproval: req.RequiresApproval,
		Departments:      req.Departments,
		IsActive:         true,
		CreatedBy:        userID,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	list, err := h.repo.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, gin.H{"events": list})
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id (admin/staff).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	if err := h.repo.Update(c.Request.Context(), id, req.Title, req.Description, req.Location,
		req.StartsAt, req.EndsAt, req.Hours, req.MaxParticipants, req.RequiresApproval, req.IsActive); err != nil {
		response.Internal(c, "failed to update event")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, e)
}

// Deactivate handles DELETE /events/:id (admin). The event row is kept.
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to deactivate event")
		return
	}
	response.NoContent(c)
}
