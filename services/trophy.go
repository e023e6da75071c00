package services

import (
	"fmt"
	"hash/fnv"

	"gorm.io/gorm"

	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

const maxWeeklyBonus = 70

// TrophyService reconciles trophy balances against the evidence log. Every
// mutation is expressed as compute-target, diff-against-logged-net, apply
// only the difference; overlapping or repeated calls converge to the same
// final state without double counting.
type TrophyService struct {
	db *gorm.DB
}

// NewTrophyService creates a trophy service bound to a database handle.
func NewTrophyService(db *gorm.DB) *TrophyService {
	return &TrophyService{db: db}
}

// UploadBase returns the deterministic per-upload reward base. Derived from
// the upload id so repeated evaluation can never re-roll a different value.
func UploadBase(uploadID uint) int {
	return 26 + int(uploadID%7)
}

// MissedDayBase derives a stable reward base for a day with no upload at
// all. Hashing (user, date) keeps the penalty replay-safe without an upload
// id to anchor to.
func MissedDayBase(userID uint, date string) int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d:%s", userID, date)
	return 26 + int(h.Sum32()%7)
}

// uploadTargetNet is the total the ledger should hold for an upload given
// its current verification status.
func uploadTargetNet(uploadID uint, status models.UploadStatus) int {
	base := UploadBase(uploadID)
	switch status {
	case models.UploadApproved:
		return base
	case models.UploadRejected:
		// Penalty exceeds a single day's gain to discourage junk submissions.
		return -2 * base
	default:
		return 0
	}
}

// SyncForUpload reconciles the ledger for one upload to match its current
// status. Calling it any number of times with the same status is a no-op
// after the first; after a status flip it applies exactly the adjustment
// needed to reach the new target.
func (t *TrophyService) SyncForUpload(upload *models.Upload) (int, error) {
	var applied int
	err := t.db.Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = t.syncForUploadTx(tx, upload)
		return err
	})
	return applied, err
}

func (t *TrophyService) syncForUploadTx(tx *gorm.DB, upload *models.Upload) (int, error) {
	target := uploadTargetNet(upload.ID, upload.Status)
	current, err := ledgerNet(tx.Model(&models.TrophyTransaction{}).
		Where("user_id = ? AND upload_id = ? AND reason IN ?", upload.UserID, upload.ID, models.UploadReasons()))
	if err != nil {
		return 0, err
	}

	diff := target - current
	if diff == 0 {
		return 0, nil
	}

	reason := models.ReasonUploadAdjust
	if current == 0 {
		if diff > 0 {
			reason = models.ReasonUploadAward
		} else {
			reason = models.ReasonUploadRevoke
		}
	}

	return t.applyDeltaTx(tx, upload.UserID, diff, reason, entryTags{
		uploadID: &upload.ID,
		detail:   fmt.Sprintf("upload %d %s on %s", upload.ID, upload.Status, upload.Date),
	})
}

// syncBonusTx reconciles the weekly bonus ledger for a challenge. The
// target is zero when the week does not (or no longer does) qualify, which
// turns the diff negative and logs a revocation.
func (t *TrophyService) syncBonusTx(tx *gorm.DB, ch *models.Challenge, consecutivePerfectWeeks int) (int, error) {
	target := 0
	if consecutivePerfectWeeks > 0 {
		target = 10 * consecutivePerfectWeeks
		if target > maxWeeklyBonus {
			target = maxWeeklyBonus
		}
	}

	current, err := ledgerNet(tx.Model(&models.TrophyTransaction{}).
		Where("user_id = ? AND challenge_id = ? AND reason IN ?", ch.UserID, ch.ID, models.BonusReasons()))
	if err != nil {
		return 0, err
	}

	diff := target - current
	if diff == 0 {
		return 0, nil
	}

	reason := models.ReasonWeeklyBonus
	if diff < 0 {
		reason = models.ReasonBonusRevoked
	}

	return t.applyDeltaTx(tx, ch.UserID, diff, reason, entryTags{
		challengeID: &ch.ID,
		detail:      fmt.Sprintf("week %s..%s perfect streak %d", ch.StartDate, ch.EndDate, consecutivePerfectWeeks),
	})
}

// applyMissedDayPenaltyTx charges the missed-day penalty for one calendar day,
// at most once per (user, date). Re-running the rollup over an already
// penalized day is a no-op.
func (t *TrophyService) applyMissedDayPenaltyTx(tx *gorm.DB, userID uint, date string) (int, error) {
	var count int64
	if err := tx.Model(&models.TrophyTransaction{}).
		Where("user_id = ? AND ref_date = ? AND reason = ?", userID, date, models.ReasonMissedDay).
		Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	base := MissedDayBase(userID, date)
	penalty := -((base + 1) / 2) // round(base/2), half up

	return t.applyDeltaTx(tx, userID, penalty, models.ReasonMissedDay, entryTags{
		refDate: date,
		detail:  fmt.Sprintf("no qualifying evidence on %s", date),
	})
}

// AdminAdjust applies a manual balance correction with an audit entry.
func (t *TrophyService) AdminAdjust(userID uint, delta int, detail string) (int, error) {
	var applied int
	err := t.db.Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = t.applyDeltaTx(tx, userID, delta, models.ReasonAdminAdjust, entryTags{detail: detail})
		return err
	})
	return applied, err
}

// entryTags carries the idempotence keys and audit detail for a ledger row.
type entryTags struct {
	uploadID    *uint
	challengeID *uint
	refDate     string
	detail      string
}

// applyDeltaTx updates the balance and appends the matching ledger row in
// one atomic step. A negative-going delta is truncated so the balance never
// drops below zero; only the truncated amount is applied and logged. Returns
// the amount actually applied.
func (t *TrophyService) applyDeltaTx(tx *gorm.DB, userID uint, delta int, reason models.TrophyReason, tags entryTags) (int, error) {
	if delta == 0 {
		return 0, nil
	}

	var user models.User
	if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
		return 0, err
	}

	applied := delta
	if user.Trophies+applied < 0 {
		applied = -user.Trophies
	}
	if applied == 0 {
		// Nothing to take from an empty balance; skip the zero row so the
		// ledger stays meaningful and the next sync can still reconcile.
		return 0, nil
	}

	user.Trophies += applied
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("trophies", user.Trophies).Error; err != nil {
		return 0, err
	}

	entry := models.TrophyTransaction{
		UserID:      userID,
		UploadID:    tags.uploadID,
		ChallengeID: tags.challengeID,
		RefDate:     tags.refDate,
		Delta:       applied,
		Reason:      reason,
		Detail:      tags.detail,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}

	if utils.Sugar != nil {
		utils.Sugar.Debugf("trophy delta user=%d reason=%s delta=%d applied=%d", userID, reason, delta, applied)
	}
	return applied, nil
}

// Balance returns the user's current trophy balance.
func (t *TrophyService) Balance(userID uint) (int, error) {
	var user models.User
	if err := t.db.Select("trophies").First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.Trophies, nil
}

// ledgerNet sums the deltas matched by the prepared query.
func ledgerNet(q *gorm.DB) (int, error) {
	var net *int
	if err := q.Select("COALESCE(SUM(delta), 0)").Scan(&net).Error; err != nil {
		return 0, err
	}
	if net == nil {
		return 0, nil
	}
	return *net, nil
}
