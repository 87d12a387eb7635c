package rooms

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/middleware"
	"github.com/aura-webinar/privatevc/pkg/response"
)

// CreateRequest is the body for POST /scopes/:id/rooms.
type CreateRequest struct {
	CategoryID uuid.UUID `json:"category_id" binding:"required"`
}

// RedeemRequest is the body for POST /scopes/:id/rooms/redeem.
type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// MonitorRequest is the body for PUT /scopes/:id/monitor.
type MonitorRequest struct {
	DisplayID uuid.UUID `json:"display_id" binding:"required"`
}

// MonitorSetupRequest is the body for POST /scopes/:id/monitor/setup.
type MonitorSetupRequest struct {
	CategoryID uuid.UUID `json:"category_id" binding:"required"`
}

// Handler exposes private room endpoints.
type Handler struct {
	creator    *Creator
	access     *AccessController
	registry   *Registry
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewHandler creates a rooms handler.
func NewHandler(creator *Creator, access *AccessController, registry *Registry, reconciler *Reconciler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{creator: creator, access: access, registry: registry, reconciler: reconciler, logger: logger}
}

// Create handles POST /scopes/:id/rooms.
func (h *Handler) Create(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	session, err := h.creator.Create(c.Request.Context(), scopeID, req.CategoryID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, gin.H{"code": session.Code, "room_id": session.RoomID})
}

// Redeem handles POST /scopes/:id/rooms/redeem.
func (h *Handler) Redeem(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, ErrInvalidCode)
		return
	}
	session, err := h.access.Redeem(c.Request.Context(), scopeID, userID, req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"room_id": session.RoomID, "granted": true})
}

// List handles GET /scopes/:id/rooms (admin).
func (h *Handler) List(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	response.OK(c, gin.H{"sessions": h.registry.List(scopeID)})
}

// Reset handles DELETE /scopes/:id/rooms (admin). Rooms themselves are left alone.
func (h *Handler) Reset(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	n := h.registry.ResetScope(scopeID)
	response.OK(c, gin.H{"dropped": n})
}

// SetMonitor handles PUT /scopes/:id/monitor (admin).
func (h *Handler) SetMonitor(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	var req MonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	binding, err := h.reconciler.Bind(c.Request.Context(), scopeID, req.DisplayID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, binding)
}

// SetupMonitor handles POST /scopes/:id/monitor/setup (admin).
func (h *Handler) SetupMonitor(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	var req MonitorSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	binding, err := h.reconciler.Setup(c.Request.Context(), scopeID, req.CategoryID)
	if err != nil && binding.DisplayID == uuid.Nil {
		h.writeError(c, err)
		return
	}
	if err != nil {
		h.logger.Warn("monitor bound but first refresh failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
	}
	response.OK(c, binding)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidCode):
		response.BadRequest(c, "invalid passcode, please check and try again")
	case errors.Is(err, ErrInsufficient):
		response.Forbidden(c, "not enough tickets")
	case errors.Is(err, ErrRoomNotFound):
		response.NotFound(c, "channel not found")
	case errors.Is(err, ErrCodeSpaceExhausted), errors.Is(err, ErrDuplicateKey):
		response.ServiceUnavailable(c, "no passcode available, try again later")
	case IsGatewayError(err):
		response.BadGateway(c, "channel operation failed")
	default:
		h.logger.Error("rooms request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "internal error")
	}
}
