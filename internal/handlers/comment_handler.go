package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/labstack/echo/v4"
)

type CommentService interface {
	List(ctx context.Context, itemID string, page int) (*models.CommentPage, error)
	Create(ctx context.Context, itemID string, viewerID uint, content string) (*models.Comment, error)
}

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentService CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentService CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/items/:id/comments", h.GetComments)
	g.POST("/items/:id/comments", h.CreateComment)
}

// GetComments returns one page of the item's comments, newest first
func (h *CommentHandler) GetComments(c echo.Context) error {
	page := 1
	if p := c.QueryParam("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid page")
		}
		page = n
	}

	comments, err := h.commentService.List(c.Request().Context(), c.Param("id"), page)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

// CreateComment creates a new comment on an item
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.commentService.Create(c.Request().Context(), c.Param("id"), middleware.ViewerID(c), req.Content)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}
