package tickets

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/middleware"
	"github.com/aura-webinar/privatevc/internal/models"
	"github.com/aura-webinar/privatevc/pkg/response"
)

// Store is the ticket ledger used by the handler.
type Store interface {
	Get(ctx context.Context, scopeID, userID uuid.UUID) (models.MemberInfo, error)
	Set(ctx context.Context, scopeID, userID uuid.UUID, n int) error
	GrantAll(ctx context.Context, scopeID uuid.UUID, n int) (int64, error)
	ResetAll(ctx context.Context, scopeID uuid.UUID) (int64, error)
	RecordJoin(ctx context.Context, scopeID, userID uuid.UUID, inviterID *uuid.UUID) (bool, error)
}

// SetRequest is the body for PUT /scopes/:id/members/:userId/tickets.
type SetRequest struct {
	Tickets *int `json:"tickets" binding:"required,min=0"`
}

// GrantAllRequest is the body for POST /scopes/:id/tickets/grant-all.
type GrantAllRequest struct {
	Tickets int `json:"tickets" binding:"omitempty,min=1"`
}

// JoinRequest is the body for POST /scopes/:id/members.
type JoinRequest struct {
	InviterID *uuid.UUID `json:"inviter_id"`
}

// Handler exposes ticket and membership endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a tickets handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Me handles GET /scopes/:id/me.
func (h *Handler) Me(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	h.writeInfo(c, scopeID, userID)
}

// Member handles GET /scopes/:id/members/:userId (admin).
func (h *Handler) Member(c *gin.Context) {
	scopeID, userID, ok := parseMemberPath(c)
	if !ok {
		return
	}
	h.writeInfo(c, scopeID, userID)
}

// SetTickets handles PUT /scopes/:id/members/:userId/tickets (admin).
func (h *Handler) SetTickets(c *gin.Context) {
	scopeID, userID, ok := parseMemberPath(c)
	if !ok {
		return
	}
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.store.Set(c.Request.Context(), scopeID, userID, *req.Tickets); err != nil {
		if errors.Is(err, ErrNegative) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("set tickets failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		response.Internal(c, "failed to set tickets")
		return
	}
	h.writeInfo(c, scopeID, userID)
}

// GrantAll handles POST /scopes/:id/tickets/grant-all (admin). One ticket
// per member unless the body says otherwise.
func (h *Handler) GrantAll(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	var req GrantAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	if req.Tickets == 0 {
		req.Tickets = 1
	}
	n, err := h.store.GrantAll(c.Request.Context(), scopeID, req.Tickets)
	if err != nil {
		h.logger.Error("grant tickets failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		response.Internal(c, "failed to grant tickets")
		return
	}
	response.OK(c, gin.H{"members": n, "tickets": req.Tickets})
}

// ResetAll handles POST /scopes/:id/tickets/reset (admin).
func (h *Handler) ResetAll(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	n, err := h.store.ResetAll(c.Request.Context(), scopeID)
	if err != nil {
		h.logger.Error("reset tickets failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		response.Internal(c, "failed to reset tickets")
		return
	}
	response.OK(c, gin.H{"members": n})
}

// Join handles POST /scopes/:id/members for the calling user.
func (h *Handler) Join(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req JoinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	first, err := h.store.RecordJoin(c.Request.Context(), scopeID, userID, req.InviterID)
	if err != nil {
		h.logger.Error("record join failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		response.Internal(c, "failed to join")
		return
	}
	if first {
		h.logger.Info("member joined", zap.String("scope_id", scopeID.String()), zap.String("user_id", userID.String()))
		response.Created(c, gin.H{"joined": true})
		return
	}
	response.OK(c, gin.H{"joined": false})
}

func (h *Handler) writeInfo(c *gin.Context, scopeID, userID uuid.UUID) {
	info, err := h.store.Get(c.Request.Context(), scopeID, userID)
	if err != nil {
		h.logger.Error("get tickets failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		response.Internal(c, "failed to load tickets")
		return
	}
	response.OK(c, info)
}

func parseMemberPath(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return uuid.Nil, uuid.Nil, false
	}
	return scopeID, userID, true
}
