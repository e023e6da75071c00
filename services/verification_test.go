package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

type recordingNotifier struct {
	decisions []models.UploadStatus
}

func (r *recordingNotifier) VerificationDecided(userID, uploadID uint, status models.UploadStatus) {
	r.decisions = append(r.decisions, status)
}

type recordingSink struct {
	streaks   []models.StreakView
	finalized []uint
}

func (r *recordingSink) StreakUpdated(userID uint, view models.StreakView) {
	r.streaks = append(r.streaks, view)
}

func (r *recordingSink) ChallengeFinalized(userID, challengeID uint, status models.ChallengeStatus) {
	r.finalized = append(r.finalized, challengeID)
}

func newVerificationStack(db *gorm.DB, notifier Notifier, sink AchievementSink) *VerificationService {
	trophies := NewTrophyService(db)
	streaks := NewStreakService(db)
	challenges := NewChallengeService(db, trophies, streaks)
	return NewVerificationService(db, trophies, streaks, challenges, notifier, sink)
}

func TestDecideApprovalAwardsAndUpdatesStreak(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	notifier := &recordingNotifier{}
	sink := &recordingSink{}
	verification := newVerificationStack(db, notifier, sink)

	ch, err := verification.challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	up := seedUpload(t, db, user.ID, ch.ID, 0, models.UploadPending)

	reviewed, err := verification.Decide(up.ID, 99, models.UploadApproved)
	require.NoError(t, err)
	assert.Equal(t, models.UploadApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, uint(99), *reviewed.ReviewedBy)
	assert.NotNil(t, reviewed.ReviewedAt)

	balance, err := verification.trophies.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, UploadBase(up.ID), balance)

	var state models.StreakState
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&state).Error)
	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, utils.Today(), state.LastActivityDate)

	require.Len(t, notifier.decisions, 1)
	assert.Equal(t, models.UploadApproved, notifier.decisions[0])
	require.Len(t, sink.streaks, 1)
	assert.Equal(t, 1, sink.streaks[0].CurrentStreak)
	// The live week was not finalized, so no finalization event fires.
	assert.Empty(t, sink.finalized)
}

func TestDecideReversalReconcilesEverything(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	verification := newVerificationStack(db, nil, nil)

	ch, err := verification.challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	up := seedUpload(t, db, user.ID, ch.ID, 0, models.UploadPending)

	_, err = verification.Decide(up.ID, 99, models.UploadApproved)
	require.NoError(t, err)
	_, err = verification.Decide(up.ID, 99, models.UploadRejected)
	require.NoError(t, err)

	// The award is clawed back; nothing was there beyond it, so the balance
	// clamps at zero instead of going negative.
	balance, err := verification.trophies.Balance(user.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	var state models.StreakState
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&state).Error)
	assert.Zero(t, state.CurrentStreak)
}

func TestDecideRejectsUnknownUploadAndStatus(t *testing.T) {
	db := newTestDB(t)
	verification := newVerificationStack(db, nil, nil)

	_, err := verification.Decide(12345, 1, models.UploadApproved)
	assert.ErrorIs(t, err, ErrUploadNotFound)

	_, err = verification.Decide(1, 1, models.UploadStatus("maybe"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDecideIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	verification := newVerificationStack(db, nil, nil)

	ch, err := verification.challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	up := seedUpload(t, db, user.ID, ch.ID, 0, models.UploadPending)

	_, err = verification.Decide(up.ID, 99, models.UploadApproved)
	require.NoError(t, err)
	balance, err := verification.trophies.Balance(user.ID)
	require.NoError(t, err)

	_, err = verification.Decide(up.ID, 99, models.UploadApproved)
	require.NoError(t, err)
	after, err := verification.trophies.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, balance, after)
}

func TestPropagationPanicDoesNotFailVerification(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, 2)
	verification := newVerificationStack(db, panickyNotifier{}, nil)

	ch, err := verification.challenges.GetOrCreateActive(user.ID)
	require.NoError(t, err)
	up := seedUpload(t, db, user.ID, ch.ID, 0, models.UploadPending)

	_, err = verification.Decide(up.ID, 99, models.UploadApproved)
	require.NoError(t, err)

	balance, err := verification.trophies.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, UploadBase(up.ID), balance)
}

type panickyNotifier struct{}

func (panickyNotifier) VerificationDecided(userID, uploadID uint, status models.UploadStatus) {
	panic("notifier down")
}
