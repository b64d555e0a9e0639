package participation

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/communityserve/backend/internal/middleware"
	"github.com/communityserve/backend/pkg/response"
)

// DisapproveRegistrationRequest is the body for registration disapproval.
type DisapproveRegistrationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DisapproveAttendanceRequest is the body for attendance disapproval. Reason
// must come from the fixed set; Detail is required when Reason is "Other".
type DisapproveAttendanceRequest struct {
	Reason string `json:"reason" binding:"required"`
	Detail string `json:"detail"`
}

// Handler handles participation HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a participation handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Join handles POST /events/:id/join (the caller registers themselves).
func (h *Handler) Join(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	rec, err := h.svc.Join(c.Request.Context(), eventID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, rec)
}

// ApproveRegistration handles POST /events/:id/participants/:userId/approve-registration (admin/staff).
func (h *Handler) ApproveRegistration(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	approverID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	rec, err := h.svc.ApproveRegistration(c.Request.Context(), eventID, userID, approverID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rec)
}

// DisapproveRegistration handles POST /events/:id/participants/:userId/disapprove-registration (admin/staff).
func (h *Handler) DisapproveRegistration(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	approverID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req DisapproveRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	rec, err := h.svc.DisapproveRegistration(c.Request.Context(), eventID, userID, approverID, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rec)
}

// ReinstateRegistration handles POST /events/:id/participants/:userId/reinstate (admin).
func (h *Handler) ReinstateRegistration(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	rec, err := h.svc.ReinstateRegistration(c.Request.Context(), eventID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rec)
}

// TimeIn handles POST /events/:id/time-in (the caller stamps themselves).
func (h *Handler) TimeIn(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	rec, err := h.svc.RecordTimeIn(c.Request.Context(), eventID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rec)
}

// TimeOut handles POST /events/:id/time-out.
func (h *Handler) TimeOut(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	rec, err := h.svc.RecordTimeOut(c.Request.Context(), eventID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rec)
}

// ApproveAttendance handles POST /events/:id/participants/:userId/approve-attendance (admin/staff).
func (h *Handler) ApproveAttendance(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	approverID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	rec, err := h.svc.ApproveAttendance(c.Request.Context(), eventID, userID, approverID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rec)
}

// DisapproveAttendance handles POST /events/:id/participants/:userId/disapprove-attendance (admin/staff).
func (h *Handler) DisapproveAttendance(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	approverID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req DisapproveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	rec, err := h.svc.DisapproveAttendance(c.Request.Context(), eventID, userID, approverID, req.Reason, req.Detail)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rec)
}

// Participants handles GET /events/:id/participants.
func (h *Handler) Participants(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.Participants(c.Request.Context(), eventID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	count, err := h.svc.ApprovedCount(c.Request.Context(), eventID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"participants": list, "approved_count": count})
}

// MyHours handles GET /me/hours.
func (h *Handler) MyHours(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	total, err := h.svc.TotalApprovedHours(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"total_hours": total})
}

// DisapprovalReasons handles GET /participation/disapproval-reasons.
func (h *Handler) DisapprovalReasons(c *gin.Context) {
	response.OK(c, gin.H{"reasons": AttendanceDisapprovalReasons})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps state-machine errors to HTTP statuses. Every kind keeps its
// specific message; nothing is downgraded to a generic failure.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrRecordNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAlreadyRegistered), errors.Is(err, ErrAlreadyRecorded),
		errors.Is(err, ErrEventFull), errors.Is(err, ErrEventInactive):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrNotRegistered):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrTimeRecordIncomplete):
		response.PreconditionFailed(c, err.Error())
	case errors.Is(err, ErrReasonRequired), errors.Is(err, ErrInvalidReason):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("participation operation failed", zap.Error(err))
		response.Internal(c, "operation failed")
	}
}
