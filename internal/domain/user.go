package domain

import "time"

// User is a storefront account. Email uniqueness is enforced by the
// database index; registration relies on the constraint violation to
// detect duplicates instead of a separate lookup.
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"size:255;not null" json:"nome"`
	Email             string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash      string    `gorm:"size:1024;not null" json:"-"`
	Verified          bool      `gorm:"not null;default:false" json:"verificado"`
	VerificationToken *string   `gorm:"size:1024" json:"-"`
	IsAdmin           bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
