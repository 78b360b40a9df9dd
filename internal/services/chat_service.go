package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/querycache"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/internal/repositories"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
)

// ChatService owns buyer-seller rooms and their messages
type ChatService struct {
	chats repositories.ChatRepository
	items repositories.ItemRepository
	users repositories.UserRepository
	feed  realtime.Feed
	cache *querycache.Cache
}

func NewChatService(chats repositories.ChatRepository, items repositories.ItemRepository, users repositories.UserRepository, feed realtime.Feed, cache *querycache.Cache) *ChatService {
	return &ChatService{chats: chats, items: items, users: users, feed: feed, cache: cache}
}

// StartChat returns the viewer's room for an item, creating it when the viewer
// has none. Owners cannot open a room on their own item.
func (s *ChatService) StartChat(ctx context.Context, itemID string, viewerID uint) (*models.ChatRoom, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, lookupError("item", err)
	}
	if item.UserID == viewerID {
		return nil, validationError("cannot start a chat on your own item")
	}

	room, err := s.chats.FindRoom(ctx, itemID, viewerID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("find room: %w", err)
	}

	room = &models.ChatRoom{ItemID: itemID, SellerID: item.UserID, BuyerID: viewerID}
	err = s.chats.CreateRoom(ctx, room)
	if errors.Is(err, repositories.ErrDuplicate) {
		// Lost a race with another StartChat by the same buyer
		existing, findErr := s.chats.FindRoom(ctx, itemID, viewerID)
		if findErr != nil {
			return nil, fmt.Errorf("find room after conflict: %w", findErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	invalidate(ctx, s.cache, chatRoomsKey())
	publish(ctx, s.feed, room.TableName(), realtime.Insert, room, nil)
	return room, nil
}

// participantRoom loads a room the viewer belongs to
func (s *ChatService) participantRoom(ctx context.Context, roomID, viewerID uint) (*models.ChatRoom, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	room, err := s.chats.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, lookupError("chat room", err)
	}
	if !room.HasParticipant(viewerID) {
		return nil, fmt.Errorf("chat room %d: %w", roomID, ErrForbidden)
	}
	return room, nil
}

// GetRoom returns a room with its item and both participants
func (s *ChatService) GetRoom(ctx context.Context, roomID, viewerID uint) (*models.ChatRoomDetail, error) {
	room, err := s.participantRoom(ctx, roomID, viewerID)
	if err != nil {
		return nil, err
	}
	details, err := s.describe(ctx, []models.ChatRoom{*room})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// LoadMessages marks every message from the other participant read, then
// returns the room's messages oldest first.
func (s *ChatService) LoadMessages(ctx context.Context, roomID, viewerID uint) ([]models.ChatMessage, error) {
	if _, err := s.participantRoom(ctx, roomID, viewerID); err != nil {
		return nil, err
	}

	marked, err := s.chats.MarkRoomRead(ctx, roomID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("mark room read: %w", err)
	}
	if marked > 0 {
		invalidate(ctx, s.cache, roomMessagesKey(roomID), chatRoomsKey())
		publish(ctx, s.feed, models.ChatMessage{}.TableName(), realtime.Update,
			map[string]any{"room_id": roomID, "is_read": true, "reader_id": viewerID}, nil)
	}

	return querycache.Fetch(ctx, s.cache, viewerMessagesKey(roomID, viewerID), func(ctx context.Context) ([]models.ChatMessage, error) {
		msgs, err := s.chats.GetMessagesByRoom(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		return msgs, nil
	})
}

// RefreshMessages discards the viewer's cached list and loads it again
func (s *ChatService) RefreshMessages(ctx context.Context, roomID, viewerID uint) ([]models.ChatMessage, error) {
	invalidate(ctx, s.cache, viewerMessagesKey(roomID, viewerID))
	return s.LoadMessages(ctx, roomID, viewerID)
}

// SendMessage appends a message from the viewer. Blank content is rejected
// before anything is read or written.
func (s *ChatService) SendMessage(ctx context.Context, roomID, viewerID uint, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationError("message content is empty")
	}
	if _, err := s.participantRoom(ctx, roomID, viewerID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{RoomID: roomID, SenderID: viewerID, Content: content}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.chats.TouchRoom(ctx, roomID, time.Now()); err != nil {
		logger.Warn().Err(err).Uint("room_id", roomID).Msg("room activity time not updated")
	}

	invalidate(ctx, s.cache, roomMessagesKey(roomID), chatRoomsKey())
	publish(ctx, s.feed, msg.TableName(), realtime.Insert, msg, nil)
	return msg, nil
}

// MarkRead marks one message read for the viewer. Repeating it, or marking the
// viewer's own message, changes nothing.
func (s *ChatService) MarkRead(ctx context.Context, roomID, messageID, viewerID uint) error {
	if viewerID == 0 {
		return ErrAuthRequired
	}
	changed, err := s.chats.MarkMessageRead(ctx, messageID, viewerID)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if changed {
		invalidate(ctx, s.cache, roomMessagesKey(roomID), chatRoomsKey())
		publish(ctx, s.feed, models.ChatMessage{}.TableName(), realtime.Update,
			map[string]any{"id": messageID, "room_id": roomID, "is_read": true}, nil)
	}
	return nil
}

// ListRooms returns the viewer's rooms, most recently active first, with unread
// counts and last messages
func (s *ChatService) ListRooms(ctx context.Context, viewerID uint) ([]models.ChatRoomListEntry, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	return querycache.Fetch(ctx, s.cache, querycache.NewKey("chatRooms", viewerID), func(ctx context.Context) ([]models.ChatRoomListEntry, error) {
		rooms, err := s.chats.GetRoomsForUser(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("load rooms: %w", err)
		}
		details, err := s.describe(ctx, rooms)
		if err != nil {
			return nil, err
		}

		ids := make([]uint, len(rooms))
		for i, r := range rooms {
			ids[i] = r.ID
		}
		unread, err := s.chats.CountUnreadByRoom(ctx, viewerID, ids)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
		last, err := s.chats.GetLastMessages(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load last messages: %w", err)
		}

		entries := make([]models.ChatRoomListEntry, len(details))
		for i, d := range details {
			entries[i] = models.ChatRoomListEntry{ChatRoomDetail: d, UnreadMessages: unread[d.ID]}
			if m, ok := last[d.ID]; ok {
				entries[i].LastMessage = &m
			}
		}
		return entries, nil
	})
}

// UnreadCount is the number of unread messages from others across the viewer's rooms
func (s *ChatService) UnreadCount(ctx context.Context, viewerID uint) (int64, error) {
	if viewerID == 0 {
		return 0, ErrAuthRequired
	}
	n, err := s.chats.CountUnread(ctx, viewerID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (s *ChatService) describe(ctx context.Context, rooms []models.ChatRoom) ([]models.ChatRoomDetail, error) {
	itemIDs := make([]string, 0, len(rooms))
	userIDs := make([]uint, 0, 2*len(rooms))
	for _, r := range rooms {
		itemIDs = append(itemIDs, r.ItemID)
		userIDs = append(userIDs, r.SellerID, r.BuyerID)
	}

	items, err := s.items.GetItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load room items: %w", err)
	}
	users, err := s.users.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load room participants: %w", err)
	}

	itemByID := make(map[string]models.ItemSummary, len(items))
	for i := range items {
		itemByID[items[i].ID.Hex()] = items[i].ToSummary()
	}
	userByID := make(map[uint]models.UserCompact, len(users))
	for i := range users {
		userByID[users[i].ID] = users[i].ToCompact()
	}

	details := make([]models.ChatRoomDetail, len(rooms))
	for i, r := range rooms {
		d := models.ChatRoomDetail{ChatRoom: r, Seller: userByID[r.SellerID], Buyer: userByID[r.BuyerID]}
		if d.Seller.ID == 0 {
			d.Seller.ID = r.SellerID
		}
		if d.Buyer.ID == 0 {
			d.Buyer.ID = r.BuyerID
		}
		if summary, ok := itemByID[r.ItemID]; ok {
			d.Item = &summary
		}
		details[i] = d
	}
	return details, nil
}
