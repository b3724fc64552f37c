package models

// User is a shopper, seller or admin account. Role holds one of the auth
// package's role names.
type User struct {
	Base
	Name      string `gorm:"size:255;not null" json:"name"`
	Email     string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string `gorm:"size:255;not null" json:"-"`
	Role      string `gorm:"size:16;not null;default:SHOPPER" json:"role"`
	AvatarURL string `gorm:"size:1024" json:"avatarUrl,omitempty"`
}
