package chat

import (
	"context"
	"fmt"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
)

// UnreadCounter counts unread messages from others across the viewer's rooms
type UnreadCounter interface {
	UnreadCount(ctx context.Context, viewerID uint) (int64, error)
}

// BadgeUpdate carries the navigation badge value
type BadgeUpdate struct {
	Type   string `json:"type"`
	Unread int64  `json:"unread"`
}

// Badge recounts a viewer's unread messages whenever any chat message changes
type Badge struct {
	counter UnreadCounter
	feed    realtime.Feed
}

func NewBadge(counter UnreadCounter, feed realtime.Feed) *Badge {
	return &Badge{counter: counter, feed: feed}
}

// Run renders the count once, then again after every change that moves it,
// until ctx is cancelled or render fails. Each recount is a full count, never
// an adjustment of the previous value. Bursts of events collapse into one
// recount.
func (b *Badge) Run(ctx context.Context, viewerID uint, render func(BadgeUpdate) error) error {
	dirty := make(chan struct{}, 1)
	filter := realtime.Table(models.ChatMessage{}.TableName()).On(realtime.Any)
	sub, err := b.feed.Subscribe(ctx, filter, func(realtime.Event) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe unread badge: %w", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn().Err(err).Uint("viewer_id", viewerID).Msg("badge subscription not released cleanly")
		}
	}()

	n, err := b.counter.UnreadCount(ctx, viewerID)
	if err != nil {
		return err
	}
	if err := render(BadgeUpdate{Type: "unread", Unread: n}); err != nil {
		return err
	}
	last := n

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dirty:
			n, err := b.counter.UnreadCount(ctx, viewerID)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				logger.Warn().Err(err).Uint("viewer_id", viewerID).Msg("unread recount failed")
				continue
			}
			if n == last {
				continue
			}
			last = n
			if err := render(BadgeUpdate{Type: "unread", Unread: n}); err != nil {
				return err
			}
		}
	}
}
