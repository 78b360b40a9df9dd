package models

import "time"

// Comment represents a comment on an item
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ItemID    string    `json:"item_id" gorm:"size:24;index"` // MongoDB ObjectID as hex
	UserID    uint      `json:"user_id" gorm:"index"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Comment) TableName() string { return "comments" }

// CommentWithProfile is a comment joined with its author's profile
type CommentWithProfile struct {
	Comment
	Profile  ProfileCompact `json:"profile"`
	IsAuthor bool           `json:"is_author"` // Commenter owns the item
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
}

// CommentPage is one page of an item's comments, newest first
type CommentPage struct {
	Comments []CommentWithProfile `json:"comments"`
	Page     int                  `json:"page"`
	Total    int64                `json:"total"`
	HasMore  bool                 `json:"has_more"`
}
