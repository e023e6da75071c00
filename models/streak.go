package models

import "time"

// StreakState is the persisted streak record, one row per user, created
// lazily on first reference. It is only ever written by an explicit
// recompute; nothing bumps it incrementally.
type StreakState struct {
	ID     uint `gorm:"primaryKey" json:"-"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	CurrentStreak    int    `gorm:"default:0" json:"current_streak"`
	LongestStreak    int    `gorm:"default:0" json:"longest_streak"`
	LastActivityDate string `gorm:"size:10" json:"last_activity_date"`

	// Admin baseline: a hard floor set by an administrator. The computed
	// value may raise the streak above it but never lower it, and it never
	// decays until explicitly cleared.
	AdminBaselineDate    string `gorm:"size:10" json:"admin_baseline_date"`
	AdminBaselineStreak  int    `gorm:"default:0" json:"admin_baseline_streak"`
	AdminBaselineLongest int    `gorm:"default:0" json:"admin_baseline_longest"`

	// LastRollupDate is the watermark through which missed-day penalties
	// have been applied.
	LastRollupDate string `gorm:"size:10" json:"last_rollup_date"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// StreakView is the read model returned by streak computation.
type StreakView struct {
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	LastActivityDate string `json:"last_activity_date"`
}
