package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

func newChallengeService(db *gorm.DB) *ChallengeService {
	trophies := NewTrophyService(db)
	streaks := NewStreakService(db)
	return NewChallengeService(db, trophies, streaks)
}

// seedWeek creates a challenge row whose 7-day window starts startOffset days
// from today.
func seedWeek(t *testing.T, db *gorm.DB, userID uint, startOffset int) models.Challenge {
	t.Helper()
	ch := models.Challenge{
		UserID:            userID,
		StartDate:         day(startOffset),
		EndDate:           day(startOffset + 6),
		Status:            models.ChallengeActive,
		RestDaysAvailable: 3,
	}
	require.NoError(t, db.Create(&ch).Error)
	return ch
}

func TestWindowForAnchorsToRegistration(t *testing.T) {
	reg := "2026-08-01"

	start, end, err := WindowFor(reg, "2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-01", start)
	assert.Equal(t, "2026-08-07", end)

	start, _, err = WindowFor(reg, "2026-08-07")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-01", start)

	start, end, err = WindowFor(reg, "2026-08-08")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-08", start)
	assert.Equal(t, "2026-08-14", end)

	start, _, err = WindowFor(reg, "2026-08-20")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", start)

	// Days before registration clamp into the first window.
	start, _, err = WindowFor(reg, "2026-07-20")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-01", start)

	_, _, err = WindowFor("garbage", "2026-08-01")
	assert.Error(t, err)
}

func TestGetOrCreateActiveMaterializesCurrentWindow(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 10)
	challenges := newChallengeService(db)

	ch, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeActive, ch.Status)
	assert.Equal(t, utils.MustAddDays(user.RegistrationDate, 7), ch.StartDate)
	assert.Equal(t, 3, ch.RestDaysAvailable)
	assert.True(t, ch.ContainsDay(utils.Today()))

	again, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, again.ID)
}

func TestGetOrCreateActivePremiumQuota(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("premium", true).Error)
	challenges := newChallengeService(db)

	ch, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, ch.RestDaysAvailable)
}

func TestGetOrCreateActiveFinalizesDanglingWeek(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 10)
	challenges := newChallengeService(db)

	// Last week was left active with enough approved days to complete.
	prior := seedWeek(t, db, user.ID, -10)
	for i := -10; i <= -6; i++ {
		seedUpload(t, db, user.ID, prior.ID, i, models.UploadApproved)
	}

	_, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)

	var closed models.Challenge
	require.NoError(t, db.First(&closed, prior.ID).Error)
	assert.Equal(t, models.ChallengeCompleted, closed.Status)
	assert.Equal(t, 5, closed.CompletedDays)

	// Rollover finalization never moves bonus trophies.
	var bonusRows int64
	require.NoError(t, db.Model(&models.TrophyTransaction{}).
		Where("challenge_id = ?", prior.ID).Count(&bonusRows).Error)
	assert.Zero(t, bonusRows)
}

func TestEvaluateClosedWeekOutcomes(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 20)
	challenges := newChallengeService(db)

	// Five approved days completes the week.
	week := seedWeek(t, db, user.ID, -14)
	for i := -14; i <= -10; i++ {
		seedUpload(t, db, user.ID, week.ID, i, models.UploadApproved)
	}
	_, err := challenges.Evaluate(week.ID)
	require.NoError(t, err)

	var got models.Challenge
	require.NoError(t, db.First(&got, week.ID).Error)
	assert.Equal(t, models.ChallengeCompleted, got.Status)
	assert.Equal(t, 5, got.CompletedDays)
}

func TestEvaluateClosedWeekFailsShortWeek(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 20)
	challenges := newChallengeService(db)

	week := seedWeek(t, db, user.ID, -14)
	for i := -14; i <= -11; i++ {
		seedUpload(t, db, user.ID, week.ID, i, models.UploadApproved)
	}
	_, err := challenges.Evaluate(week.ID)
	require.NoError(t, err)

	var got models.Challenge
	require.NoError(t, db.First(&got, week.ID).Error)
	assert.Equal(t, models.ChallengeFailed, got.Status)
}

func TestEvaluateParksOnPendingEvidence(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 20)
	challenges := newChallengeService(db)

	week := seedWeek(t, db, user.ID, -14)
	for i := -14; i <= -11; i++ {
		seedUpload(t, db, user.ID, week.ID, i, models.UploadApproved)
	}
	pending := seedUpload(t, db, user.ID, week.ID, -10, models.UploadPending)

	_, err := challenges.Evaluate(week.ID)
	require.NoError(t, err)

	var got models.Challenge
	require.NoError(t, db.First(&got, week.ID).Error)
	assert.Equal(t, models.ChallengePendingEvaluation, got.Status)

	// The late approval flips the parked week to completed.
	require.NoError(t, db.Model(&models.Upload{}).Where("id = ?", pending.ID).
		Update("status", models.UploadApproved).Error)
	_, err = challenges.ReevaluateAfterVerification(week.ID)
	require.NoError(t, err)

	require.NoError(t, db.First(&got, week.ID).Error)
	assert.Equal(t, models.ChallengeCompleted, got.Status)
	assert.Equal(t, 5, got.CompletedDays)
}

func TestEvaluatePerfectWeekPaysBonus(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 20)
	challenges := newChallengeService(db)

	week := seedWeek(t, db, user.ID, -14)
	for i := -14; i <= -8; i++ {
		seedUpload(t, db, user.ID, week.ID, i, models.UploadApproved)
	}

	bonusApplied, err := challenges.Evaluate(week.ID)
	require.NoError(t, err)
	assert.True(t, bonusApplied)

	balance, err := challenges.trophies.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	// Re-running the evaluation is a no-op.
	bonusApplied, err = challenges.Evaluate(week.ID)
	require.NoError(t, err)
	assert.False(t, bonusApplied)

	balance, err = challenges.trophies.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance)
}

func TestBonusRevokedWhenPerfectWeekUnravels(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 20)
	challenges := newChallengeService(db)

	week := seedWeek(t, db, user.ID, -14)
	var uploads []models.Upload
	for i := -14; i <= -8; i++ {
		uploads = append(uploads, seedUpload(t, db, user.ID, week.ID, i, models.UploadApproved))
	}
	_, err := challenges.Evaluate(week.ID)
	require.NoError(t, err)

	// A moderator reverses one approval after the payout.
	require.NoError(t, db.Model(&models.Upload{}).Where("id = ?", uploads[0].ID).
		Update("status", models.UploadRejected).Error)
	_, err = challenges.ReevaluateAfterVerification(week.ID)
	require.NoError(t, err)

	var got models.Challenge
	require.NoError(t, db.First(&got, week.ID).Error)
	// Six days still completes the week, but perfection is gone.
	assert.Equal(t, models.ChallengeCompleted, got.Status)

	net, err := ledgerNet(db.Model(&models.TrophyTransaction{}).
		Where("challenge_id = ? AND reason IN ?", week.ID, models.BonusReasons()))
	require.NoError(t, err)
	assert.Zero(t, net)
}

func TestCompletedWeekFlipsToFailedAfterReversal(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 20)
	challenges := newChallengeService(db)

	week := seedWeek(t, db, user.ID, -14)
	var uploads []models.Upload
	for i := -14; i <= -10; i++ {
		uploads = append(uploads, seedUpload(t, db, user.ID, week.ID, i, models.UploadApproved))
	}
	_, err := challenges.Evaluate(week.ID)
	require.NoError(t, err)

	var got models.Challenge
	require.NoError(t, db.First(&got, week.ID).Error)
	require.Equal(t, models.ChallengeCompleted, got.Status)

	// One reversal takes the week below the completion bar.
	require.NoError(t, db.Model(&models.Upload{}).Where("id = ?", uploads[0].ID).
		Update("status", models.UploadRejected).Error)
	_, err = challenges.ReevaluateAfterVerification(week.ID)
	require.NoError(t, err)

	require.NoError(t, db.First(&got, week.ID).Error)
	assert.Equal(t, models.ChallengeFailed, got.Status)
	assert.Equal(t, 4, got.CompletedDays)
}

func TestImperfectWeekResetsPerfectChain(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 40)
	challenges := newChallengeService(db)

	// Perfect, imperfect, perfect. The last week restarts the chain at 1.
	week1 := seedWeek(t, db, user.ID, -23)
	for i := -23; i <= -17; i++ {
		seedUpload(t, db, user.ID, week1.ID, i, models.UploadApproved)
	}
	week2 := seedWeek(t, db, user.ID, -16)
	for i := -16; i <= -12; i++ {
		seedUpload(t, db, user.ID, week2.ID, i, models.UploadApproved)
	}
	week3 := seedWeek(t, db, user.ID, -9)
	for i := -9; i <= -3; i++ {
		seedUpload(t, db, user.ID, week3.ID, i, models.UploadApproved)
	}

	_, err := challenges.Evaluate(week1.ID)
	require.NoError(t, err)
	_, err = challenges.Evaluate(week2.ID)
	require.NoError(t, err)
	_, err = challenges.Evaluate(week3.ID)
	require.NoError(t, err)

	net, err := ledgerNet(db.Model(&models.TrophyTransaction{}).
		Where("challenge_id = ? AND reason IN ?", week3.ID, models.BonusReasons()))
	require.NoError(t, err)
	assert.Equal(t, 10, net)
}

func TestConsecutivePerfectWeeksEscalateBonus(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 30)
	challenges := newChallengeService(db)

	week1 := seedWeek(t, db, user.ID, -16)
	for i := -16; i <= -10; i++ {
		seedUpload(t, db, user.ID, week1.ID, i, models.UploadApproved)
	}
	week2 := seedWeek(t, db, user.ID, -9)
	for i := -9; i <= -3; i++ {
		seedUpload(t, db, user.ID, week2.ID, i, models.UploadApproved)
	}

	_, err := challenges.Evaluate(week1.ID)
	require.NoError(t, err)
	_, err = challenges.Evaluate(week2.ID)
	require.NoError(t, err)

	// 10 for the first perfect week, 20 for the second in a row.
	balance, err := challenges.trophies.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, balance)
}

func TestReevaluateLeavesLiveWeekAlone(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	challenges := newChallengeService(db)

	ch, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)

	bonusApplied, err := challenges.ReevaluateAfterVerification(ch.ID)
	require.NoError(t, err)
	assert.False(t, bonusApplied)

	var got models.Challenge
	require.NoError(t, db.First(&got, ch.ID).Error)
	assert.Equal(t, models.ChallengeActive, got.Status)
}

func TestUseRestDayConsumesQuota(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	challenges := newChallengeService(db)

	ch, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)

	view, err := challenges.UseRestDay(user.ID, ch.ID, utils.Today())
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentStreak)

	var got models.Challenge
	require.NoError(t, db.First(&got, ch.ID).Error)
	assert.Equal(t, 2, got.RestDaysAvailable)
	assert.Equal(t, 1, got.CompletedDays)
}

func TestUseRestDayRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	challenges := newChallengeService(db)

	ch, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)

	_, err = challenges.UseRestDay(user.ID, ch.ID, utils.Today())
	require.NoError(t, err)
	_, err = challenges.UseRestDay(user.ID, ch.ID, utils.Today())
	assert.ErrorIs(t, err, ErrDuplicateEvidence)
}

func TestUseRestDayRejectsDayWithEvidence(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	challenges := newChallengeService(db)

	ch, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	seedUpload(t, db, user.ID, ch.ID, 0, models.UploadPending)

	_, err = challenges.UseRestDay(user.ID, ch.ID, utils.Today())
	assert.ErrorIs(t, err, ErrDuplicateEvidence)
}

func TestUseRestDayAllowedOverRejectedUpload(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	challenges := newChallengeService(db)

	ch, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	seedUpload(t, db, user.ID, ch.ID, 0, models.UploadRejected)

	_, err = challenges.UseRestDay(user.ID, ch.ID, utils.Today())
	require.NoError(t, err)
}

func TestUseRestDayValidation(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	other := models.User{Username: "rival", PasswordHash: "x", RegistrationDate: day(-2)}
	require.NoError(t, db.Create(&other).Error)
	challenges := newChallengeService(db)

	ch, err := challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)

	_, err = challenges.UseRestDay(user.ID, ch.ID, "bogus")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = challenges.UseRestDay(user.ID, ch.ID, day(1))
	assert.ErrorIs(t, err, ErrFutureDate)

	_, err = challenges.UseRestDay(user.ID, ch.ID+1000, utils.Today())
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	_, err = challenges.UseRestDay(other.ID, ch.ID, utils.Today())
	assert.ErrorIs(t, err, ErrNotYourChallenge)

	require.NoError(t, db.Model(&models.Challenge{}).Where("id = ?", ch.ID).
		Update("rest_days_available", 0).Error)
	_, err = challenges.UseRestDay(user.ID, ch.ID, utils.Today())
	assert.ErrorIs(t, err, ErrRestQuotaExhausted)
}
