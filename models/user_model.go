package models

import "time"

type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Username          string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Email             string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password          string    `gorm:"not null" json:"-"`
	IsAdmin           bool      `gorm:"default:false" json:"is_admin"`
	ProfilePictureURL *string   `gorm:"size:255" json:"profile_picture_url"`
	CreatedAt         time.Time `json:"created_at"`

	Profile *UserProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// Role is the claim value the admin guard checks.
func (u User) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "student"
}
