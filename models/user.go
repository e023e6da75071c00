package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a challenge participant. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:255" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	AvatarURL    string `gorm:"size:512" json:"avatar_url"`
	Premium      bool   `gorm:"default:false" json:"premium"`

	// Trophies is the denormalized running balance of the trophy ledger.
	// Mutated only through the reconciliation engine, never directly.
	Trophies int `gorm:"default:0" json:"trophies"`

	// RegistrationDate anchors the user's weekly challenge windows (YYYY-MM-DD).
	RegistrationDate string `gorm:"size:10;not null" json:"registration_date"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
