package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// LikeService toggles likes and reports like state
type LikeService interface {
	Status(ctx context.Context, itemID string, viewerID uint) (*models.LikeStatus, error)
	Toggle(ctx context.Context, itemID string, viewerID uint) (*models.LikeStatus, error)
}

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeService LikeService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeService LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.GET("/items/:id/like", h.GetLikeStatus)
	g.POST("/items/:id/like", h.ToggleLike)
}

// GetLikeStatus reports the item's like count and whether the viewer likes it
func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	status, err := h.likeService.Status(c.Request().Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// ToggleLike likes the item, or removes the viewer's like when present
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	status, err := h.likeService.Toggle(c.Request().Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}
