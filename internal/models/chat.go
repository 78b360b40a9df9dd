package models

import "time"

// ChatRoom is a conversation about one item between its seller and one buyer
type ChatRoom struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ItemID    string    `json:"item_id" gorm:"size:24;uniqueIndex:idx_room_item_buyer"`
	SellerID  uint      `json:"seller_id" gorm:"index"`
	BuyerID   uint      `json:"buyer_id" gorm:"index;uniqueIndex:idx_room_item_buyer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

// HasParticipant reports whether the user is the seller or the buyer of the room
func (r *ChatRoom) HasParticipant(userID uint) bool {
	return userID != 0 && (r.SellerID == userID || r.BuyerID == userID)
}

func (ChatRoom) TableName() string { return "chat_rooms" }

// ChatMessage is appended to a room and never edited
type ChatMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RoomID    uint      `json:"room_id" gorm:"index"`
	SenderID  uint      `json:"sender_id" gorm:"index"`
	Content   string    `json:"content" gorm:"type:text"`
	IsRead    bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// ChatRoomDetail is a room with its item and participants resolved
type ChatRoomDetail struct {
	ChatRoom
	Item   *ItemSummary `json:"item,omitempty"`
	Seller UserCompact  `json:"seller"`
	Buyer  UserCompact  `json:"buyer"`
}

// ChatRoomListEntry is a row of the viewer's chat list
type ChatRoomListEntry struct {
	ChatRoomDetail
	UnreadMessages int64        `json:"unread_messages"`
	LastMessage    *ChatMessage `json:"last_message,omitempty"`
}

// SendMessageRequest defines the request body for posting a chat message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}
