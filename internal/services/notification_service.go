package services

import (
	"context"
	"fmt"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/internal/repositories"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
)

type NotificationService struct {
	notifications repositories.NotificationRepository
	feed          realtime.Feed
}

func NewNotificationService(notifications repositories.NotificationRepository, feed realtime.Feed) *NotificationService {
	return &NotificationService{notifications: notifications, feed: feed}
}

// ListUnread returns the viewer's unread notifications, newest first
func (s *NotificationService) ListUnread(ctx context.Context, viewerID uint) ([]models.Notification, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	ns, err := s.notifications.GetUnreadByRecipient(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

// MarkRead marks a notification read; only its recipient may
func (s *NotificationService) MarkRead(ctx context.Context, id, viewerID uint) error {
	if viewerID == 0 {
		return ErrAuthRequired
	}
	n, err := s.notifications.GetNotificationByID(ctx, id)
	if err != nil {
		return lookupError("notification", err)
	}
	if n.UserID != viewerID {
		return fmt.Errorf("notification %d: %w", id, ErrForbidden)
	}
	if n.IsRead {
		return nil
	}
	if err := s.notifications.MarkAsRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	old := *n
	n.IsRead = true
	publish(ctx, s.feed, n.TableName(), realtime.Update, n, old)
	return nil
}

// Subscribe delivers notifications created for the viewer from now on
func (s *NotificationService) Subscribe(ctx context.Context, viewerID uint, deliver func(models.Notification)) (realtime.Subscription, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	filter := realtime.Table(models.Notification{}.TableName()).Eq("user_id", viewerID).On(realtime.Insert)
	sub, err := s.feed.Subscribe(ctx, filter, func(ev realtime.Event) {
		var n models.Notification
		if err := ev.Decode(&n); err != nil {
			logger.Warn().Err(err).Msg("skipping undecodable notification event")
			return
		}
		deliver(n)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe notifications: %w", err)
	}
	return sub, nil
}
