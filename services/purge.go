package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/gritday/gritday/config"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

// StartRetentionPurge launches a background goroutine that periodically
// deletes the photo evidence of fully-resolved weeks older than the
// configured retention. Best-effort: failures are logged and retried on the
// next tick. Challenge rows and the trophy ledger are audit data and are
// never purged.
func StartRetentionPurge(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			purgeResolvedWeeks(db)
		}
	}()
}

func purgeResolvedWeeks(db *gorm.DB) {
	cutoff := utils.MustAddDays(utils.Today(), -config.Get().RetentionDays)

	var stale []models.Challenge
	if err := db.Where("status IN ? AND end_date < ?",
		[]models.ChallengeStatus{models.ChallengeCompleted, models.ChallengeFailed}, cutoff).
		Limit(100).Find(&stale).Error; err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("retention purge query failed: %v", err)
		}
		return
	}

	for _, ch := range stale {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ? AND date BETWEEN ? AND ?",
				ch.UserID, ch.StartDate, ch.EndDate).
				Delete(&models.Upload{}).Error; err != nil {
				return err
			}
			return tx.Where("challenge_id = ?", ch.ID).Delete(&models.RestDay{}).Error
		})
		if err != nil && utils.Sugar != nil {
			utils.Sugar.Warnf("retention purge failed challenge=%d: %v", ch.ID, err)
		}
	}
}
