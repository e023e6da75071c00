package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

func day(offset int) string {
	return utils.MustAddDays(utils.Today(), offset)
}

func snapshotOf(offsets ...int) evidenceSnapshot {
	var snap evidenceSnapshot
	for _, o := range offsets {
		snap.validDays = append(snap.validDays, day(o))
	}
	return snap
}

func TestDeriveStreakConsecutiveRun(t *testing.T) {
	view := deriveStreak(snapshotOf(-2, -1, 0), nil, utils.Today())
	assert.Equal(t, 3, view.CurrentStreak)
	assert.Equal(t, 3, view.LongestStreak)
	assert.Equal(t, day(0), view.LastActivityDate)
}

func TestDeriveStreakGapResetsRun(t *testing.T) {
	view := deriveStreak(snapshotOf(-5, -4, -3, -1, 0), nil, utils.Today())
	assert.Equal(t, 2, view.CurrentStreak)
	assert.Equal(t, 3, view.LongestStreak)
}

func TestDeriveStreakAliveThroughYesterday(t *testing.T) {
	view := deriveStreak(snapshotOf(-3, -2, -1), nil, utils.Today())
	assert.Equal(t, 3, view.CurrentStreak)
}

func TestDeriveStreakLapsesAfterYesterday(t *testing.T) {
	view := deriveStreak(snapshotOf(-4, -3, -2), nil, utils.Today())
	assert.Equal(t, 0, view.CurrentStreak)
	assert.Equal(t, 3, view.LongestStreak)
	assert.Equal(t, day(-2), view.LastActivityDate)
}

func TestDeriveStreakNoEvidence(t *testing.T) {
	view := deriveStreak(evidenceSnapshot{}, nil, utils.Today())
	assert.Equal(t, 0, view.CurrentStreak)
	assert.Equal(t, 0, view.LongestStreak)
	assert.Empty(t, view.LastActivityDate)
}

func TestDeriveStreakRecentRejectionBreaks(t *testing.T) {
	snap := snapshotOf(-2, -1)
	snap.latestRejected = day(0)
	view := deriveStreak(snap, nil, utils.Today())
	assert.Equal(t, 0, view.CurrentStreak)
	assert.Equal(t, 2, view.LongestStreak)
}

func TestDeriveStreakRejectionSupersededByLaterActivity(t *testing.T) {
	snap := snapshotOf(-2, -1, 0)
	snap.latestRejected = day(-1)
	view := deriveStreak(snap, nil, utils.Today())
	assert.Equal(t, 3, view.CurrentStreak)
}

func TestDeriveStreakOldRejectionIgnored(t *testing.T) {
	snap := snapshotOf(-1, 0)
	snap.latestRejected = day(-5)
	view := deriveStreak(snap, nil, utils.Today())
	assert.Equal(t, 2, view.CurrentStreak)
}

func TestDeriveStreakBaselineExtendsThroughActivity(t *testing.T) {
	state := &models.StreakState{
		AdminBaselineDate:   day(-1),
		AdminBaselineStreak: 50,
	}
	view := deriveStreak(snapshotOf(0), state, utils.Today())
	assert.Equal(t, 51, view.CurrentStreak)
	assert.Equal(t, 51, view.LongestStreak)
}

func TestDeriveStreakBaselineHoldsWithoutActivity(t *testing.T) {
	state := &models.StreakState{
		AdminBaselineDate:   day(0),
		AdminBaselineStreak: 50,
	}
	view := deriveStreak(evidenceSnapshot{}, state, utils.Today())
	assert.Equal(t, 50, view.CurrentStreak)
	assert.Equal(t, day(0), view.LastActivityDate)
}

func TestDeriveStreakSameDayRejectionBeatsBaseline(t *testing.T) {
	state := &models.StreakState{
		AdminBaselineDate:    day(0),
		AdminBaselineStreak:  50,
		AdminBaselineLongest: 50,
	}
	snap := evidenceSnapshot{latestRejected: day(0)}
	view := deriveStreak(snap, state, utils.Today())
	assert.Equal(t, 0, view.CurrentStreak)
	assert.Equal(t, 50, view.LongestStreak)
}

func TestDeriveStreakBaselinePastRejectionSurvives(t *testing.T) {
	state := &models.StreakState{
		AdminBaselineDate:   day(-2),
		AdminBaselineStreak: 50,
	}
	// Activity yesterday and today extends the baseline beyond the rejection.
	snap := snapshotOf(-1, 0)
	snap.latestRejected = day(-1)
	view := deriveStreak(snap, state, utils.Today())
	assert.Equal(t, 52, view.CurrentStreak)
}

func TestRecomputeAndPersistFromEvidence(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 10)
	streaks := NewStreakService(db)

	seedUpload(t, db, user.ID, 0, -2, models.UploadApproved)
	seedRestDay(t, db, user.ID, 0, -1)
	seedUpload(t, db, user.ID, 0, 0, models.UploadApproved)

	view, err := streaks.RecomputeAndPersist(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.CurrentStreak)
	assert.Equal(t, 3, view.LongestStreak)

	var state models.StreakState
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&state).Error)
	assert.Equal(t, 3, state.CurrentStreak)
	assert.Equal(t, day(0), state.LastActivityDate)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 10)
	streaks := NewStreakService(db)

	seedUpload(t, db, user.ID, 0, -1, models.UploadApproved)
	seedUpload(t, db, user.ID, 0, 0, models.UploadApproved)

	first, err := streaks.RecomputeAndPersist(user.ID)
	require.NoError(t, err)
	second, err := streaks.RecomputeAndPersist(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecomputeKeepsLongestMonotone(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 10)
	streaks := NewStreakService(db)

	require.NoError(t, db.Create(&models.StreakState{
		UserID:        user.ID,
		LongestStreak: 9,
	}).Error)
	seedUpload(t, db, user.ID, 0, 0, models.UploadApproved)

	view, err := streaks.RecomputeAndPersist(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentStreak)
	assert.Equal(t, 9, view.LongestStreak)
}

func TestSetAdminBaselineValidation(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 10)
	streaks := NewStreakService(db)

	_, err := streaks.SetAdminBaseline(user.ID, "not-a-date", 5, 5)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = streaks.SetAdminBaseline(user.ID, day(0), -1, 0)
	assert.ErrorIs(t, err, ErrInvalidBaseline)
}

func TestSetAndClearAdminBaseline(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 10)
	streaks := NewStreakService(db)

	view, err := streaks.SetAdminBaseline(user.ID, day(-1), 50, 60)
	require.NoError(t, err)
	assert.Equal(t, 50, view.CurrentStreak)
	assert.Equal(t, 60, view.LongestStreak)

	view, err = streaks.ClearAdminBaseline(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.CurrentStreak)
	// Longest never shrinks, even when the baseline that raised it is gone.
	assert.Equal(t, 60, view.LongestStreak)
}
