package models

import "time"

// ChallengeStatus drives the weekly challenge state machine.
type ChallengeStatus string

const (
	// ChallengeActive: the 7-day window is still running.
	ChallengeActive ChallengeStatus = "active"
	// ChallengePendingEvaluation: the window closed but unresolved evidence
	// remains; the outcome must not be finalized yet.
	ChallengePendingEvaluation ChallengeStatus = "pending_evaluation"
	ChallengeCompleted         ChallengeStatus = "completed"
	ChallengeFailed            ChallengeStatus = "failed"
)

// Terminal reports whether the challenge outcome has been decided.
// Terminal is not forever: a reversed moderation decision can reopen
// and re-finalize a week.
func (s ChallengeStatus) Terminal() bool {
	return s == ChallengeCompleted || s == ChallengeFailed
}

// Challenge is one user-week, spanning exactly 7 calendar days anchored to
// the user's registration date.
type Challenge struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_challenges_user_start" json:"user_id"`
	StartDate string          `gorm:"size:10;not null;uniqueIndex:idx_challenges_user_start" json:"start_date"`
	EndDate   string          `gorm:"size:10;not null" json:"end_date"`
	Status    ChallengeStatus `gorm:"size:24;not null;default:active;index" json:"status"`

	// CompletedDays = approved uploads + rest days inside the window.
	CompletedDays     int `gorm:"default:0" json:"completed_days"`
	RestDaysAvailable int `gorm:"default:0" json:"rest_days_available"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContainsDay reports whether day falls inside the challenge window.
func (c *Challenge) ContainsDay(day string) bool {
	return day >= c.StartDate && day <= c.EndDate
}
