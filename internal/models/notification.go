package models

import "time"

// Notification tells an item owner about activity on their item
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index"` // Recipient
	ItemID    string    `json:"item_id" gorm:"size:24"`
	CommentID uint      `json:"comment_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string { return "notifications" }
