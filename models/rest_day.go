package models

import "time"

// RestDay is a quota-limited claim that counts as valid activity for a date
// without photo evidence. One row per (challenge, date).
type RestDay struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ChallengeID uint      `gorm:"not null;uniqueIndex:idx_rest_days_challenge_date" json:"challenge_id"`
	Date        string    `gorm:"size:10;not null;uniqueIndex:idx_rest_days_challenge_date" json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}
