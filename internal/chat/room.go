package chat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
)

// DefaultPollInterval is how often an open room re-fetches when no push arrives
const DefaultPollInterval = time.Second

// eventBuffer bounds the push events waiting for the room loop. When it is full
// further events are dropped; the next refresh re-fetches everything anyway.
const eventBuffer = 32

// MessageSource is the storage side of an open room
type MessageSource interface {
	// RefreshMessages marks the room read for the viewer and returns every
	// message oldest first, bypassing any cached list.
	RefreshMessages(ctx context.Context, roomID, viewerID uint) ([]models.ChatMessage, error)
	// MarkRead marks one message read. Repeating it changes nothing.
	MarkRead(ctx context.Context, roomID, messageID, viewerID uint) error
}

// RoomUpdate is a full snapshot of a room pushed to the viewer
type RoomUpdate struct {
	Type        string               `json:"type"`
	RoomID      uint                 `json:"room_id"`
	Messages    []models.ChatMessage `json:"messages"`
	ScrollToEnd bool                 `json:"scroll_to_end"`
}

// Synchronizer keeps open rooms in step with storage using push events from the
// feed and a fallback poll
type Synchronizer struct {
	source       MessageSource
	feed         realtime.Feed
	pollInterval time.Duration
}

func NewSynchronizer(source MessageSource, feed realtime.Feed, pollInterval time.Duration) *Synchronizer {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Synchronizer{source: source, feed: feed, pollInterval: pollInterval}
}

// Run keeps one room open for one viewer until ctx is cancelled or render fails.
// An unknown room or a viewer outside it fails on the first fetch, before
// anything is rendered. The subscription and the poll ticker are
// always released on return.
func (s *Synchronizer) Run(ctx context.Context, roomID, viewerID uint, render func(RoomUpdate) error) error {
	r := &room{sync: s, id: roomID, viewer: viewerID, render: render}

	// Subscribe before the first fetch so a message sent in between is not missed
	events := make(chan realtime.Event, eventBuffer)
	filter := realtime.Table(models.ChatMessage{}.TableName()).Eq("room_id", roomID).On(realtime.Any)
	sub, err := s.feed.Subscribe(ctx, filter, func(ev realtime.Event) {
		select {
		case events <- ev:
		default:
			logger.Debug().Uint("room_id", roomID).Msg("room event buffer full, waiting for next refresh")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe room %d: %w", roomID, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn().Err(err).Uint("room_id", roomID).Msg("room subscription not released cleanly")
		}
	}()

	msgs, err := s.source.RefreshMessages(ctx, roomID, viewerID)
	if err != nil {
		return err
	}
	if err := r.show(msgs, true); err != nil {
		return err
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := r.onEvent(ctx, ev); err != nil {
				return err
			}
		case <-ticker.C:
			if err := r.refresh(ctx, false); err != nil {
				return err
			}
		}
	}
}

type room struct {
	sync   *Synchronizer
	id     uint
	viewer uint
	render func(RoomUpdate) error
	shown  []models.ChatMessage
	drawn  bool
}

func (r *room) onEvent(ctx context.Context, ev realtime.Event) error {
	scroll := false
	if ev.Type == realtime.Insert {
		sender, _ := ev.Field("sender_id")
		if sender != strconv.FormatUint(uint64(r.viewer), 10) {
			if id, err := strconv.ParseUint(fieldOrEmpty(ev, "id"), 10, 64); err == nil {
				if err := r.sync.source.MarkRead(ctx, r.id, uint(id), r.viewer); err != nil {
					logger.Warn().Err(err).Uint("room_id", r.id).Uint64("message_id", id).Msg("pushed message not marked read")
				}
			}
			scroll = true
		}
	}
	return r.refresh(ctx, scroll)
}

func fieldOrEmpty(ev realtime.Event, column string) string {
	v, _ := ev.Field(column)
	return v
}

// refresh re-fetches the room. Gateway failures are logged and the loop keeps
// going; the next poll retries on its own schedule.
func (r *room) refresh(ctx context.Context, scroll bool) error {
	msgs, err := r.sync.source.RefreshMessages(ctx, r.id, r.viewer)
	if ctx.Err() != nil {
		// The view closed while the fetch was in flight
		return nil
	}
	if err != nil {
		logger.Warn().Err(err).Uint("room_id", r.id).Msg("room refresh failed")
		return nil
	}
	return r.show(msgs, scroll)
}

func (r *room) show(msgs []models.ChatMessage, scroll bool) error {
	if !scroll && r.drawn && sameMessages(r.shown, msgs) {
		return nil
	}
	r.shown, r.drawn = msgs, true
	return r.render(RoomUpdate{Type: "messages", RoomID: r.id, Messages: msgs, ScrollToEnd: scroll})
}

// sameMessages compares the parts of a message list that can change
func sameMessages(a, b []models.ChatMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].IsRead != b[i].IsRead {
			return false
		}
	}
	return true
}
