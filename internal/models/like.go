package models

import "time"

// Like marks that a user is interested in an item; at most one per (user, item)
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_like_user_item"`
	ItemID    string    `json:"item_id" gorm:"size:24;index;uniqueIndex:idx_like_user_item"` // MongoDB ObjectID as hex
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Like) TableName() string { return "likes" }

// LikeStatus is returned by the like toggle
type LikeStatus struct {
	ItemID string `json:"item_id"`
	Liked  bool   `json:"liked"`
	Likes  int    `json:"likes"`
}
