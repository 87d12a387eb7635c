package channels

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/middleware"
	"github.com/aura-webinar/privatevc/internal/models"
	"github.com/aura-webinar/privatevc/pkg/response"
)

// CreateCategoryRequest is the body for POST /scopes/:id/categories.
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// Store is the part of the channel directory the handler needs.
type Store interface {
	CreateCategory(ctx context.Context, scopeID uuid.UUID, name string) (*models.Category, error)
	ListCategories(ctx context.Context, scopeID uuid.UUID) ([]models.Category, error)
	ListChannels(ctx context.Context, scopeID, userID uuid.UUID) ([]models.Channel, error)
}

// Handler exposes channel directory endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a channels handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateCategory handles POST /scopes/:id/categories (admin).
func (h *Handler) CreateCategory(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cat, err := h.repo.CreateCategory(c.Request.Context(), scopeID, req.Name)
	if err != nil {
		h.logger.Error("create category failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		response.Internal(c, "failed to create category")
		return
	}
	response.Created(c, cat)
}

// ListCategories handles GET /scopes/:id/categories.
func (h *Handler) ListCategories(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	list, err := h.repo.ListCategories(c.Request.Context(), scopeID)
	if err != nil {
		h.logger.Error("list categories failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		response.Internal(c, "failed to list categories")
		return
	}
	response.OK(c, gin.H{"categories": list})
}

// ListChannels handles GET /scopes/:id/channels. Private rooms only show up
// for members holding a grant.
func (h *Handler) ListChannels(c *gin.Context) {
	scopeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid scope id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListChannels(c.Request.Context(), scopeID, userID)
	if err != nil {
		h.logger.Error("list channels failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		response.Internal(c, "failed to list channels")
		return
	}
	response.OK(c, gin.H{"channels": list})
}
