package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gritday/gritday/config"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

const (
	challengeDays   = 7
	completionDays  = 5
	perfectWeekDays = 7
)

// ChallengeService manages the 7-day challenge windows and their evaluation
// state machine. Windows are anchored to the user's registration date, so
// the canonical window for any day is a pure function of (registration, day).
type ChallengeService struct {
	db       *gorm.DB
	trophies *TrophyService
	streaks  *StreakService
}

// NewChallengeService creates a challenge service with its collaborators.
func NewChallengeService(db *gorm.DB, trophies *TrophyService, streaks *StreakService) *ChallengeService {
	return &ChallengeService{db: db, trophies: trophies, streaks: streaks}
}

// WindowFor returns the canonical challenge window containing day for a user
// registered on registrationDate.
func WindowFor(registrationDate, day string) (start, end string, err error) {
	since, err := utils.DaysBetween(registrationDate, day)
	if err != nil {
		return "", "", err
	}
	if since < 0 {
		since = 0
	}
	start = utils.MustAddDays(registrationDate, (since/challengeDays)*challengeDays)
	end = utils.MustAddDays(start, challengeDays-1)
	return start, end, nil
}

// GetOrCreateActive returns the challenge row for the user's current window,
// creating it if needed. Creating a new window first finalizes the most
// recent still-open prior challenge so weeks cannot be left dangling; a
// prior week with pending evidence parks in pending_evaluation and is
// finalized by a later re-entrant call instead.
func (c *ChallengeService) GetOrCreateActive(userID uint) (*models.Challenge, error) {
	var out *models.Challenge
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		today := utils.Today()
		start, end, err := WindowFor(user.RegistrationDate, today)
		if err != nil {
			return err
		}

		var existing models.Challenge
		err = tx.Where("user_id = ? AND start_date = ?", userID, start).First(&existing).Error
		if err == nil {
			out = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Close out the newest prior challenge still marked active or pending.
		var prior models.Challenge
		err = tx.Where("user_id = ? AND start_date < ? AND status IN ?",
			userID, start, []models.ChallengeStatus{models.ChallengeActive, models.ChallengePendingEvaluation}).
			Order("start_date DESC").First(&prior).Error
		if err == nil {
			if _, err := c.evaluateTx(tx, &prior, false, today); err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		quota := config.Get().RestDaysPerWeek
		if user.Premium {
			quota = config.Get().RestDaysPerWeekPremium
		}

		fresh := models.Challenge{
			UserID:            userID,
			StartDate:         start,
			EndDate:           end,
			Status:            models.ChallengeActive,
			RestDaysAvailable: quota,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
			return err
		}
		// Re-read in case a concurrent request inserted the same window first.
		if err := tx.Where("user_id = ? AND start_date = ?", userID, start).First(&fresh).Error; err != nil {
			return err
		}
		out = &fresh
		return nil
	})
	return out, err
}

// Evaluate recomputes a challenge's completed days and status, and for a
// terminal outcome reconciles the weekly bonus. Returns whether a bonus
// delta was applied, for observability.
func (c *ChallengeService) Evaluate(challengeID uint) (bool, error) {
	var bonusApplied bool
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var ch models.Challenge
		if err := tx.First(&ch, challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}
		applied, err := c.evaluateTx(tx, &ch, true, utils.Today())
		if err != nil {
			return err
		}
		bonusApplied = applied
		return nil
	})
	return bonusApplied, err
}

// ReevaluateAfterVerification re-runs evaluation after an upload's status
// changed. A window that is still running is left alone; reconciliation for
// live weeks happens when the window closes.
func (c *ChallengeService) ReevaluateAfterVerification(challengeID uint) (bool, error) {
	var bonusApplied bool
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var ch models.Challenge
		if err := tx.First(&ch, challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}
		today := utils.Today()
		if ch.Status == models.ChallengeActive && ch.EndDate >= today {
			return nil
		}
		applied, err := c.evaluateTx(tx, &ch, true, today)
		if err != nil {
			return err
		}
		bonusApplied = applied
		return nil
	})
	return bonusApplied, err
}

// evaluateTx is the single evaluation path. withBonus distinguishes the full
// evaluation from the rollover finalization, which must not award bonuses
// for weeks it merely closes out.
func (c *ChallengeService) evaluateTx(tx *gorm.DB, ch *models.Challenge, withBonus bool, today string) (bool, error) {
	approved, pending, err := countUploads(tx, ch)
	if err != nil {
		return false, err
	}
	restDays, err := countRestDays(tx, ch.ID)
	if err != nil {
		return false, err
	}

	ch.CompletedDays = approved + restDays

	windowOpen := ch.EndDate >= today
	switch {
	case windowOpen && !ch.Status.Terminal():
		// Live week: refresh progress only, never finalize mid-flight.
		ch.Status = models.ChallengeActive
	case pending > 0:
		ch.Status = models.ChallengePendingEvaluation
	case ch.CompletedDays >= completionDays:
		ch.Status = models.ChallengeCompleted
	default:
		ch.Status = models.ChallengeFailed
	}

	if err := tx.Save(ch).Error; err != nil {
		return false, err
	}

	if !withBonus || !ch.Status.Terminal() {
		return false, nil
	}

	perfectWeeks := 0
	if ch.Status == models.ChallengeCompleted && ch.CompletedDays >= perfectWeekDays && pending == 0 {
		perfectWeeks, err = c.consecutivePerfectWeeks(tx, ch)
		if err != nil {
			return false, err
		}
	}

	applied, err := c.trophies.syncBonusTx(tx, ch, perfectWeeks)
	if err != nil {
		return false, err
	}
	return applied != 0, nil
}

// consecutivePerfectWeeks counts backward from ch through immediately
// preceding perfect weeks, stopping at the first imperfect one. ch itself is
// already known perfect. Counted from evidence, not challenge rows, so weeks
// the user never materialized still break the chain.
func (c *ChallengeService) consecutivePerfectWeeks(tx *gorm.DB, ch *models.Challenge) (int, error) {
	count := 1
	start := ch.StartDate
	// The bonus caps at 70 = 7 weeks; looking further back cannot change it.
	for i := 0; i < maxWeeklyBonus/10-1; i++ {
		prevStart := utils.MustAddDays(start, -challengeDays)
		prevEnd := utils.MustAddDays(start, -1)

		perfect, err := weekIsPerfect(tx, ch.UserID, prevStart, prevEnd)
		if err != nil {
			return 0, err
		}
		if !perfect {
			break
		}
		count++
		start = prevStart
	}
	return count, nil
}

// weekIsPerfect checks a window directly against the evidence log.
func weekIsPerfect(tx *gorm.DB, userID uint, start, end string) (bool, error) {
	var approved, pending, rest int64
	if err := tx.Model(&models.Upload{}).
		Where("user_id = ? AND date BETWEEN ? AND ? AND status = ?", userID, start, end, models.UploadApproved).
		Count(&approved).Error; err != nil {
		return false, err
	}
	if err := tx.Model(&models.Upload{}).
		Where("user_id = ? AND date BETWEEN ? AND ? AND status = ?", userID, start, end, models.UploadPending).
		Count(&pending).Error; err != nil {
		return false, err
	}
	if err := tx.Model(&models.RestDay{}).
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Count(&rest).Error; err != nil {
		return false, err
	}
	return pending == 0 && approved+rest >= perfectWeekDays, nil
}

// UseRestDay records a rest-day claim against the challenge's quota and
// recomputes the streak. The claim counts as valid activity for the date.
func (c *ChallengeService) UseRestDay(userID, challengeID uint, date string) (models.StreakView, error) {
	if date == "" {
		date = utils.Today()
	}
	if !utils.IsValidDay(date) {
		return models.StreakView{}, ErrInvalidDate
	}
	today := utils.Today()
	if date > today {
		return models.StreakView{}, ErrFutureDate
	}

	var view models.StreakView
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var ch models.Challenge
		if err := lockForUpdate(tx).First(&ch, challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}
		if ch.UserID != userID {
			return ErrNotYourChallenge
		}
		if ch.Status != models.ChallengeActive {
			return ErrChallengeNotActive
		}
		if !ch.ContainsDay(date) {
			return ErrOutsideWindow
		}
		if ch.RestDaysAvailable <= 0 {
			return ErrRestQuotaExhausted
		}

		// A date already backed by evidence (any status but rejected) cannot
		// also be a rest day.
		var uploads int64
		if err := tx.Model(&models.Upload{}).
			Where("user_id = ? AND date = ? AND status <> ?", userID, date, models.UploadRejected).
			Count(&uploads).Error; err != nil {
			return err
		}
		var rests int64
		if err := tx.Model(&models.RestDay{}).
			Where("challenge_id = ? AND date = ?", challengeID, date).
			Count(&rests).Error; err != nil {
			return err
		}
		if uploads > 0 || rests > 0 {
			return ErrDuplicateEvidence
		}

		claim := models.RestDay{UserID: userID, ChallengeID: challengeID, Date: date}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}

		ch.RestDaysAvailable--
		ch.CompletedDays++
		if err := tx.Save(&ch).Error; err != nil {
			return err
		}

		v, err := c.streaks.recomputeAndPersistTx(tx, userID, today)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	return view, err
}

// History returns the user's past and present challenge rows, newest first.
func (c *ChallengeService) History(userID uint, limit int) ([]models.Challenge, error) {
	if limit <= 0 || limit > 52 {
		limit = 12
	}
	var rows []models.Challenge
	err := c.db.Where("user_id = ?", userID).
		Order("start_date DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// countUploads returns approved and pending upload counts inside the window.
func countUploads(tx *gorm.DB, ch *models.Challenge) (approved, pending int, err error) {
	var a, p int64
	if err := tx.Model(&models.Upload{}).
		Where("user_id = ? AND date BETWEEN ? AND ? AND status = ?", ch.UserID, ch.StartDate, ch.EndDate, models.UploadApproved).
		Count(&a).Error; err != nil {
		return 0, 0, err
	}
	if err := tx.Model(&models.Upload{}).
		Where("user_id = ? AND date BETWEEN ? AND ? AND status = ?", ch.UserID, ch.StartDate, ch.EndDate, models.UploadPending).
		Count(&p).Error; err != nil {
		return 0, 0, err
	}
	return int(a), int(p), nil
}

func countRestDays(tx *gorm.DB, challengeID uint) (int, error) {
	var n int64
	if err := tx.Model(&models.RestDay{}).
		Where("challenge_id = ?", challengeID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
