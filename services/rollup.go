package services

import (
	"gorm.io/gorm"

	"github.com/gritday/gritday/config"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

// RollupService applies missed-day penalties for calendar days that passed
// with no qualifying evidence. It is watermark-driven: triggered lazily by
// request traffic, never by a scheduler, and advancing the watermark only
// when the whole sweep committed.
type RollupService struct {
	db       *gorm.DB
	trophies *TrophyService
	streaks  *StreakService
}

// NewRollupService creates a rollup service with its collaborators.
func NewRollupService(db *gorm.DB, trophies *TrophyService, streaks *StreakService) *RollupService {
	return &RollupService{db: db, trophies: trophies, streaks: streaks}
}

// Run sweeps every day between the user's watermark and yesterday, charges
// the missed-day penalty for each uncovered day, recomputes the streak, and
// advances the watermark to today. Returns whether a sweep ran. The whole
// sweep is one transaction: a mid-scan failure rolls everything back and
// leaves the watermark where it was for the next trigger.
func (r *RollupService) Run(userID uint) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// The row lock serializes concurrent rollups for the same user.
		state, err := getOrCreateStreakState(tx, userID)
		if err != nil {
			return err
		}
		if err := lockForUpdate(tx).First(state, state.ID).Error; err != nil {
			return err
		}

		today := utils.Today()
		if state.LastRollupDate == today {
			return nil
		}

		watermark := state.LastRollupDate
		if watermark == "" {
			// First sweep starts the day after registration; registration day
			// itself always had a full day left to upload.
			var user models.User
			if err := tx.First(&user, userID).Error; err != nil {
				return err
			}
			watermark = user.RegistrationDate
		}
		if !utils.IsValidDay(watermark) {
			return ErrInvalidDate
		}

		start := utils.MustAddDays(watermark, 1)
		if gap, err := utils.DaysBetween(start, today); err != nil {
			return err
		} else if maxScan := config.Get().RollupMaxScanDays; gap > maxScan {
			start = utils.MustAddDays(today, -maxScan)
		}

		yesterday := utils.MustAddDays(today, -1)
		if start <= yesterday {
			covered, err := coveredDays(tx, userID, start, yesterday)
			if err != nil {
				return err
			}
			for d := start; d <= yesterday; d = utils.MustAddDays(d, 1) {
				if covered[d] {
					continue
				}
				if _, err := r.trophies.applyMissedDayPenaltyTx(tx, userID, d); err != nil {
					return err
				}
				applied = true
			}
		}

		if _, err := r.streaks.recomputeAndPersistTx(tx, userID, today); err != nil {
			return err
		}

		// Reload: the streak recompute rewrote the row under us.
		state, err = getStreakState(tx, userID)
		if err != nil {
			return err
		}
		state.LastRollupDate = today
		return tx.Save(state).Error
	})
	if err != nil {
		applied = false
	}
	return applied, err
}

// coveredDays returns the set of days in [start, end] backed by an approved
// upload or a rest-day claim.
func coveredDays(tx *gorm.DB, userID uint, start, end string) (map[string]bool, error) {
	covered := map[string]bool{}

	var approved []string
	if err := tx.Model(&models.Upload{}).
		Where("user_id = ? AND date BETWEEN ? AND ? AND status = ?", userID, start, end, models.UploadApproved).
		Pluck("date", &approved).Error; err != nil {
		return nil, err
	}
	for _, d := range approved {
		covered[d] = true
	}

	var rests []string
	if err := tx.Model(&models.RestDay{}).
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Pluck("date", &rests).Error; err != nil {
		return nil, err
	}
	for _, d := range rests {
		covered[d] = true
	}
	return covered, nil
}
