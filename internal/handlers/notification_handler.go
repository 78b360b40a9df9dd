package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

type NotificationService interface {
	ListUnread(ctx context.Context, viewerID uint) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, viewerID uint) error
	Subscribe(ctx context.Context, viewerID uint, deliver func(models.Notification)) (realtime.Subscription, error)
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.GET("/notifications/ws", h.StreamNotifications)
}

// GetNotifications returns the viewer's unread notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	notifications, err := h.notificationService.ListUnread(c.Request().Context(), middleware.ViewerID(c))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.notificationService.MarkRead(c.Request().Context(), id, middleware.ViewerID(c)); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// StreamNotifications pushes each notification created for the viewer
func (h *NotificationHandler) StreamNotifications(c echo.Context) error {
	viewerID := middleware.ViewerID(c)
	if viewerID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	return serveStream(c, func(ctx context.Context, push func(any) error) error {
		failed := make(chan error, 1)
		sub, err := h.notificationService.Subscribe(ctx, viewerID, func(n models.Notification) {
			if err := push(echo.Map{"type": "notification", "notification": n}); err != nil {
				select {
				case failed <- err:
				default:
				}
			}
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				logger.Warn().Err(err).Uint("viewer_id", viewerID).Msg("notification subscription not released cleanly")
			}
		}()

		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			return err
		}
	})
}
