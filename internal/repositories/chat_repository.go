package repositories

import (
	"context"
	"time"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"gorm.io/gorm"
)

// ChatRepository defines the interface for chat rooms and their messages
type ChatRepository interface {
	CreateRoom(ctx context.Context, room *models.ChatRoom) error
	GetRoomByID(ctx context.Context, id uint) (*models.ChatRoom, error)
	FindRoom(ctx context.Context, itemID string, buyerID uint) (*models.ChatRoom, error)
	GetRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error)
	TouchRoom(ctx context.Context, id uint, at time.Time) error

	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessagesByRoom(ctx context.Context, roomID uint) ([]models.ChatMessage, error)
	MarkRoomRead(ctx context.Context, roomID, viewerID uint) (int64, error)
	MarkMessageRead(ctx context.Context, messageID, viewerID uint) (bool, error)
	CountUnread(ctx context.Context, viewerID uint) (int64, error)
	CountUnreadByRoom(ctx context.Context, viewerID uint, roomIDs []uint) (map[uint]int64, error)
	GetLastMessages(ctx context.Context, roomIDs []uint) (map[uint]models.ChatMessage, error)
}

// PostgresChatRepository implements ChatRepository for PostgreSQL
type PostgresChatRepository struct {
	db *gorm.DB
}

// NewPostgresChatRepository creates a new PostgresChatRepository
func NewPostgresChatRepository(db *gorm.DB) *PostgresChatRepository {
	return &PostgresChatRepository{db: db}
}

// CreateRoom inserts a room; a second room for the same item and buyer returns ErrDuplicate
func (r *PostgresChatRepository) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	return translate(r.db.WithContext(ctx).Create(room).Error)
}

func (r *PostgresChatRepository) GetRoomByID(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r *PostgresChatRepository) FindRoom(ctx context.Context, itemID string, buyerID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).Where("item_id = ? AND buyer_id = ?", itemID, buyerID).First(&room).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

// GetRoomsForUser returns rooms the user sells or buys in, most recently active first
func (r *PostgresChatRepository) GetRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	rooms := []models.ChatRoom{}
	err := r.db.WithContext(ctx).
		Where("seller_id = ? OR buyer_id = ?", userID, userID).
		Order("updated_at DESC").Order("id DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *PostgresChatRepository) TouchRoom(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ChatRoom{}).Where("id = ?", id).Update("updated_at", at).Error
}

// CreateMessage inserts an unread message
func (r *PostgresChatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	msg.IsRead = false
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetMessagesByRoom returns every message of a room, oldest first with id as tiebreak
func (r *PostgresChatRepository) GetMessagesByRoom(ctx context.Context, roomID uint) ([]models.ChatMessage, error) {
	msgs := []models.ChatMessage{}
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

// MarkRoomRead marks every unread message in the room not sent by the viewer
func (r *PostgresChatRepository) MarkRoomRead(ctx context.Context, roomID, viewerID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("room_id = ? AND sender_id <> ? AND is_read = ?", roomID, viewerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// MarkMessageRead marks one message read unless the viewer sent it. It reports
// whether the row changed, so repeating it is harmless.
func (r *PostgresChatRepository) MarkMessageRead(ctx context.Context, messageID, viewerID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("id = ? AND sender_id <> ? AND is_read = ?", messageID, viewerID, false).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

// CountUnread counts unread messages from others across the viewer's rooms
func (r *PostgresChatRepository) CountUnread(ctx context.Context, viewerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Joins("JOIN chat_rooms ON chat_rooms.id = chat_messages.room_id").
		Where("(chat_rooms.seller_id = ? OR chat_rooms.buyer_id = ?)", viewerID, viewerID).
		Where("chat_messages.sender_id <> ? AND chat_messages.is_read = ?", viewerID, false).
		Count(&n).Error
	return n, err
}

func (r *PostgresChatRepository) CountUnreadByRoom(ctx context.Context, viewerID uint, roomIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		RoomID uint
		Unread int64
	}
	err := r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Select("room_id, COUNT(*) AS unread").
		Where("room_id IN ? AND sender_id <> ? AND is_read = ?", roomIDs, viewerID, false).
		Group("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.RoomID] = row.Unread
	}
	return counts, nil
}

func (r *PostgresChatRepository) GetLastMessages(ctx context.Context, roomIDs []uint) (map[uint]models.ChatMessage, error) {
	last := make(map[uint]models.ChatMessage, len(roomIDs))
	if len(roomIDs) == 0 {
		return last, nil
	}
	var msgs []models.ChatMessage
	err := r.db.WithContext(ctx).Raw(
		"SELECT DISTINCT ON (room_id) * FROM chat_messages WHERE room_id IN ? ORDER BY room_id, created_at DESC, id DESC",
		roomIDs,
	).Scan(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		last[m.RoomID] = m
	}
	return last, nil
}
