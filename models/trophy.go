package models

import "time"

// TrophyReason is the closed set of ledger entry kinds. Control flow keys
// off this enum only; the free-text Detail column exists for reporting and
// debugging and is never parsed for decisions.
type TrophyReason string

const (
	ReasonUploadAward  TrophyReason = "upload_award"
	ReasonUploadAdjust TrophyReason = "upload_adjust"
	ReasonUploadRevoke TrophyReason = "upload_revoke"
	ReasonWeeklyBonus  TrophyReason = "weekly_bonus"
	ReasonBonusRevoked TrophyReason = "weekly_bonus_revoked"
	ReasonMissedDay    TrophyReason = "missed_day"
	ReasonAdminAdjust  TrophyReason = "admin_adjust"
)

// uploadReasons tags entries that count toward a single upload's net.
var uploadReasons = []TrophyReason{ReasonUploadAward, ReasonUploadAdjust, ReasonUploadRevoke}

// bonusReasons tags entries that count toward a challenge's weekly bonus net.
var bonusReasons = []TrophyReason{ReasonWeeklyBonus, ReasonBonusRevoked}

// UploadReasons returns the reason kinds whose entries form an upload's ledger net.
func UploadReasons() []TrophyReason { return uploadReasons }

// BonusReasons returns the reason kinds whose entries form a challenge's bonus net.
func BonusReasons() []TrophyReason { return bonusReasons }

// TrophyTransaction is one append-only audit ledger row. The user's balance
// is the running sum of Delta, clamped to never go observably negative.
type TrophyTransaction struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	// Idempotence keys. UploadID tags per-upload sync entries, ChallengeID
	// tags weekly bonus entries, RefDate tags missed-day penalties.
	UploadID    *uint  `gorm:"index" json:"upload_id,omitempty"`
	ChallengeID *uint  `gorm:"index" json:"challenge_id,omitempty"`
	RefDate     string `gorm:"size:10;index" json:"ref_date,omitempty"`

	Delta  int          `gorm:"not null" json:"delta"`
	Reason TrophyReason `gorm:"size:32;not null;index" json:"reason"`
	Detail string       `gorm:"size:255" json:"detail"`

	CreatedAt time.Time `json:"created_at"`
}
