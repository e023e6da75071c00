package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

// Notifier delivers user-facing notices about moderation outcomes. Delivery
// is an external collaborator; failures must never fail the verification.
type Notifier interface {
	VerificationDecided(userID, uploadID uint, status models.UploadStatus)
}

// AchievementSink receives downstream progression events (achievements,
// referral rewards). Same fire-and-forget contract as Notifier.
type AchievementSink interface {
	StreakUpdated(userID uint, view models.StreakView)
	ChallengeFinalized(userID, challengeID uint, status models.ChallengeStatus)
}

// NopNotifier is the default Notifier.
type NopNotifier struct{}

func (NopNotifier) VerificationDecided(userID, uploadID uint, status models.UploadStatus) {}

// NopAchievementSink is the default AchievementSink.
type NopAchievementSink struct{}

func (NopAchievementSink) StreakUpdated(userID uint, view models.StreakView)                        {}
func (NopAchievementSink) ChallengeFinalized(userID, challengeID uint, status models.ChallengeStatus) {}

// VerificationService is the single entry point moderation must call after
// changing an upload's status. It sequences trophy sync, streak recompute,
// challenge re-evaluation and downstream propagation. Every step is
// idempotent, so a crashed or retried call converges to the same state.
type VerificationService struct {
	db         *gorm.DB
	trophies   *TrophyService
	streaks    *StreakService
	challenges *ChallengeService

	notifier     Notifier
	achievements AchievementSink
}

// NewVerificationService wires the pipeline. notifier and achievements may
// be nil; no-op implementations are substituted.
func NewVerificationService(db *gorm.DB, trophies *TrophyService, streaks *StreakService, challenges *ChallengeService, notifier Notifier, achievements AchievementSink) *VerificationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if achievements == nil {
		achievements = NopAchievementSink{}
	}
	return &VerificationService{
		db:           db,
		trophies:     trophies,
		streaks:      streaks,
		challenges:   challenges,
		notifier:     notifier,
		achievements: achievements,
	}
}

// Decide records a moderator's decision on an upload and runs the
// reconciliation pipeline. Flipping an earlier decision is allowed; the
// diff-to-target ledger sync applies exactly the adjustment needed.
func (v *VerificationService) Decide(uploadID, reviewerID uint, status models.UploadStatus) (*models.Upload, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var upload models.Upload
	if err := v.db.First(&upload, uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}

	now := time.Now()
	upload.Status = status
	upload.ReviewedBy = &reviewerID
	upload.ReviewedAt = &now
	if err := v.db.Save(&upload).Error; err != nil {
		return nil, err
	}

	if err := v.OnVerificationChanged(upload.ID, upload.UserID, upload.ChallengeID, status); err != nil {
		return nil, err
	}
	return &upload, nil
}

// OnVerificationChanged reconciles all derived state after an upload's
// verification status changed, in order: trophy sync for the single upload,
// full streak recompute, challenge re-evaluation (which may move bonus
// trophies), then best-effort propagation to external collaborators.
func (v *VerificationService) OnVerificationChanged(uploadID, userID, challengeID uint, newStatus models.UploadStatus) error {
	var view models.StreakView
	err := v.db.Transaction(func(tx *gorm.DB) error {
		var upload models.Upload
		if err := tx.First(&upload, uploadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUploadNotFound
			}
			return err
		}

		if _, err := v.trophies.syncForUploadTx(tx, &upload); err != nil {
			return err
		}

		sv, err := v.streaks.recomputeAndPersistTx(tx, userID, utils.Today())
		if err != nil {
			return err
		}
		view = sv
		return nil
	})
	if err != nil {
		return err
	}

	if challengeID != 0 {
		if _, err := v.challenges.ReevaluateAfterVerification(challengeID); err != nil {
			return err
		}
	}

	// Read-side views are stale now.
	utils.InvalidateByPrefix(utils.UserCachePrefix(userID))

	// Best-effort side tasks: log-and-continue, never fail the verification.
	v.propagate(uploadID, userID, challengeID, newStatus, view)
	return nil
}

func (v *VerificationService) propagate(uploadID, userID, challengeID uint, status models.UploadStatus, view models.StreakView) {
	defer func() {
		if r := recover(); r != nil && utils.Sugar != nil {
			utils.Sugar.Errorf("verification propagation panic user=%d upload=%d: %v", userID, uploadID, r)
		}
	}()

	v.notifier.VerificationDecided(userID, uploadID, status)
	v.achievements.StreakUpdated(userID, view)

	if challengeID != 0 {
		var ch models.Challenge
		if err := v.db.First(&ch, challengeID).Error; err == nil && ch.Status.Terminal() {
			v.achievements.ChallengeFinalized(userID, challengeID, ch.Status)
		}
	}
}
