package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/dongne-market/backend/internal/chat"
	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// ChatService is what the chat endpoints need from the service layer
type ChatService interface {
	StartChat(ctx context.Context, itemID string, viewerID uint) (*models.ChatRoom, error)
	GetRoom(ctx context.Context, roomID, viewerID uint) (*models.ChatRoomDetail, error)
	ListRooms(ctx context.Context, viewerID uint) ([]models.ChatRoomListEntry, error)
	LoadMessages(ctx context.Context, roomID, viewerID uint) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, roomID, viewerID uint, content string) (*models.ChatMessage, error)
	MarkRead(ctx context.Context, roomID, messageID, viewerID uint) error
	UnreadCount(ctx context.Context, viewerID uint) (int64, error)
}

// RoomRunner keeps an open room in step with storage
type RoomRunner interface {
	Run(ctx context.Context, roomID, viewerID uint, render func(chat.RoomUpdate) error) error
}

// BadgeRunner keeps the unread badge in step with storage
type BadgeRunner interface {
	Run(ctx context.Context, viewerID uint, render func(chat.BadgeUpdate) error) error
}

// ChatHandler handles buyer-seller chat requests
type ChatHandler struct {
	chatService ChatService
	rooms       RoomRunner
	badge       BadgeRunner
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService ChatService, rooms RoomRunner, badge BadgeRunner) *ChatHandler {
	return &ChatHandler{chatService: chatService, rooms: rooms, badge: badge}
}

// RegisterChatRoutes registers chat routes
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.POST("/items/:id/chat", h.StartChat)
	g.GET("/chat/rooms", h.ListRooms)
	g.GET("/chat/rooms/:id", h.GetRoom)
	g.GET("/chat/rooms/:id/messages", h.GetMessages)
	g.POST("/chat/rooms/:id/messages", h.SendMessage)
	g.PUT("/chat/rooms/:id/messages/:message_id/read", h.MarkRead)
	g.GET("/chat/rooms/:id/ws", h.StreamRoom)
	g.GET("/chat/unread", h.GetUnreadCount)
	g.GET("/chat/unread/ws", h.StreamUnreadCount)
}

// StartChat opens (or reuses) the viewer's room for an item
func (h *ChatHandler) StartChat(c echo.Context) error {
	room, err := h.chatService.StartChat(c.Request().Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

func (h *ChatHandler) ListRooms(c echo.Context) error {
	rooms, err := h.chatService.ListRooms(c.Request().Context(), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *ChatHandler) GetRoom(c echo.Context) error {
	roomID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	room, err := h.chatService.GetRoom(c.Request().Context(), roomID, middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

// GetMessages returns the room's messages oldest first and marks the other
// participant's messages read
func (h *ChatHandler) GetMessages(c echo.Context) error {
	roomID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	msgs, err := h.chatService.LoadMessages(c.Request().Context(), roomID, middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	roomID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.chatService.SendMessage(c.Request().Context(), roomID, middleware.ViewerID(c), req.Content)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	roomID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	messageID, err := idParam(c, "message_id")
	if err != nil {
		return err
	}
	if err := h.chatService.MarkRead(c.Request().Context(), roomID, messageID, middleware.ViewerID(c)); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// StreamRoom pushes a fresh snapshot of the room whenever it changes. The
// viewer's access is checked before the upgrade so errors are plain HTTP.
func (h *ChatHandler) StreamRoom(c echo.Context) error {
	roomID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	viewerID := middleware.ViewerID(c)
	if _, err := h.chatService.GetRoom(c.Request().Context(), roomID, viewerID); err != nil {
		return toHTTPError(c, err)
	}

	return serveStream(c, func(ctx context.Context, push func(any) error) error {
		return h.rooms.Run(ctx, roomID, viewerID, func(u chat.RoomUpdate) error { return push(u) })
	})
}

func (h *ChatHandler) GetUnreadCount(c echo.Context) error {
	n, err := h.chatService.UnreadCount(c.Request().Context(), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// StreamUnreadCount pushes the navigation badge whenever it changes
func (h *ChatHandler) StreamUnreadCount(c echo.Context) error {
	viewerID := middleware.ViewerID(c)
	if viewerID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return serveStream(c, func(ctx context.Context, push func(any) error) error {
		return h.badge.Run(ctx, viewerID, func(u chat.BadgeUpdate) error { return push(u) })
	})
}
