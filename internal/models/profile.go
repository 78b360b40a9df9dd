package models

import "time"

// Profile is one-to-one with a user; ID equals the user ID
type Profile struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username  string    `json:"username" gorm:"size:50"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	Phone     string    `json:"phone" gorm:"size:30"`
	Location  string    `json:"location" gorm:"size:50"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileCompact is the author block shown next to comments
type ProfileCompact struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

func (p *Profile) ToCompact() ProfileCompact {
	return ProfileCompact{ID: p.ID, Email: p.Email, Username: p.Username, AvatarURL: p.AvatarURL}
}

// UpdateProfileRequest carries the editable profile fields; the avatar arrives as a file part
type UpdateProfileRequest struct {
	Username string `form:"username" json:"username" validate:"omitempty,max=50"`
	Phone    string `form:"phone" json:"phone" validate:"omitempty,max=30"`
	Location string `form:"location" json:"location" validate:"omitempty,max=50"`
}
