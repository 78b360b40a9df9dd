package services

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/anonto42/dongne-market/backend/internal/querycache"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
)

// Upload is a file received from a client
type Upload struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Filename    string
}

func (u *Upload) ext() string {
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if ext == "" {
		return ".jpg"
	}
	return ext
}

const (
	ItemImagesBucket = "item-images"
	AvatarsBucket    = "avatars"
)

func itemKey(id string) querycache.Key { return querycache.NewKey("item", id) }

func itemsKey() querycache.Key { return querycache.NewKey("items") }

func itemsByLocationKey(location string) querycache.Key {
	if location == "" {
		return itemsKey()
	}
	return querycache.NewKey("items", location)
}

func locationsKey() querycache.Key { return querycache.NewKey("locations") }

func commentsKey(itemID string) querycache.Key { return querycache.NewKey("comments", itemID) }

func allCommentsKey() querycache.Key { return querycache.NewKey("comments") }

func chatRoomsKey() querycache.Key { return querycache.NewKey("chatRooms") }

func roomMessagesKey(roomID uint) querycache.Key { return querycache.NewKey("messages", roomID) }

func viewerMessagesKey(roomID, viewerID uint) querycache.Key {
	return querycache.NewKey("messages", roomID, viewerID)
}

// invalidate drops cache entries after a write. A failure only costs freshness
// until the entry's TTL, so it is logged rather than returned.
func invalidate(ctx context.Context, cache *querycache.Cache, keys ...querycache.Key) {
	if err := cache.Invalidate(ctx, keys...); err != nil {
		logger.Warn().Err(err).Msg("query cache invalidation failed")
	}
}

// publish announces a committed row change. The write already happened, so a
// feed failure is logged and the poll loop picks the change up instead.
func publish(ctx context.Context, feed realtime.Feed, table string, typ realtime.EventType, newRow, oldRow any) {
	if feed == nil {
		return
	}
	ev, err := realtime.NewEvent(table, typ, newRow, oldRow)
	if err == nil {
		err = feed.Publish(ctx, ev)
	}
	if err != nil {
		logger.Warn().Err(err).Str("table", table).Str("type", string(typ)).Msg("change event not published")
	}
}
