package models

import "time"

// UploadStatus is the verification state of a piece of photo evidence.
// Moderators may flip a decision at any time; every state is authoritative
// only until superseded.
type UploadStatus string

const (
	UploadPending  UploadStatus = "pending"
	UploadApproved UploadStatus = "approved"
	UploadRejected UploadStatus = "rejected"
)

// Valid reports whether s is one of the known verification states.
func (s UploadStatus) Valid() bool {
	switch s {
	case UploadPending, UploadApproved, UploadRejected:
		return true
	}
	return false
}

// Terminal reports whether the status represents a moderator decision.
func (s UploadStatus) Terminal() bool {
	return s == UploadApproved || s == UploadRejected
}

// Upload is a single day's photo evidence. One row per (user, date).
type Upload struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UserID      uint         `gorm:"index;not null;uniqueIndex:idx_uploads_user_date" json:"user_id"`
	ChallengeID uint         `gorm:"index;not null" json:"challenge_id"`
	Date        string       `gorm:"size:10;not null;uniqueIndex:idx_uploads_user_date" json:"date"`
	Status      UploadStatus `gorm:"size:16;not null;default:pending;index" json:"status"`

	// PhotoKey is the storage object key for the submitted photo.
	PhotoKey string `gorm:"size:64" json:"photo_key"`
	Caption  string `gorm:"size:512" json:"caption"`

	ReviewedBy *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
