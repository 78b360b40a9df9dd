package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemsCollection is the MongoDB collection and change feed table for items
const ItemsCollection = "items"

// Item represents a marketplace listing stored in MongoDB
type Item struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Price       int                `json:"price" bson:"price"`
	Description string             `json:"description" bson:"description"`
	ImageURL    string             `json:"image_url" bson:"image_url"`
	Location    string             `json:"location" bson:"location"` // Neighborhood tag
	UserID      uint               `json:"user_id" bson:"user_id"`   // Owner
	Views       int                `json:"views" bson:"views"`
	Likes       int                `json:"likes" bson:"likes"`
	Comments    int                `json:"comments" bson:"comments"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// ItemSummary is the compact form embedded in chat lists and search results
type ItemSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    int    `json:"price"`
	ImageURL string `json:"image_url"`
	Location string `json:"location"`
}

// ToSummary converts an item to its compact form
func (i *Item) ToSummary() ItemSummary {
	return ItemSummary{
		ID:       i.ID.Hex(),
		Title:    i.Title,
		Price:    i.Price,
		ImageURL: i.ImageURL,
		Location: i.Location,
	}
}

// CreateItemRequest defines the form fields for listing a new item; the image arrives as a file part
type CreateItemRequest struct {
	Title       string `form:"title" validate:"required,min=1,max=100"`
	Price       int    `form:"price" validate:"min=0"`
	Description string `form:"description" validate:"required,max=2000"`
	Location    string `form:"location" validate:"required,max=50"`
}

// UpdateItemRequest defines the request body for editing an item
type UpdateItemRequest struct {
	Title       string `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Price       *int   `json:"price,omitempty" validate:"omitempty,min=0"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Location    string `json:"location,omitempty" validate:"omitempty,max=50"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`
}
