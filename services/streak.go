package services

import (
	"database/sql"
	"errors"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

// StreakService derives streak state from the evidence log. Computation is a
// pure re-derivation from all evidence every time; nothing increments the
// stored counters in place. That is what keeps streaks correct under
// out-of-order and reversed moderation decisions.
type StreakService struct {
	db *gorm.DB
}

// NewStreakService creates a streak service bound to a database handle.
func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{db: db}
}

// evidenceSnapshot is everything streak computation looks at.
type evidenceSnapshot struct {
	// validDays: dates with an approved upload or a rest-day claim, deduped.
	validDays []string
	// latestRejected: most recent date with a rejected upload, "" if none.
	latestRejected string
}

// Compute re-derives the user's streak from the full evidence set without
// writing anything. Same evidence in, same answer out.
func (s *StreakService) Compute(userID uint) (models.StreakView, error) {
	return s.computeTx(s.db, userID, utils.Today())
}

func (s *StreakService) computeTx(tx *gorm.DB, userID uint, today string) (models.StreakView, error) {
	snap, err := loadEvidence(tx, userID)
	if err != nil {
		return models.StreakView{}, err
	}

	state, err := getStreakState(tx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.StreakView{}, err
	}

	return deriveStreak(snap, state, today), nil
}

// RecomputeAndPersist recomputes the streak and writes it to the per-user
// streak row, creating the row lazily. Longest streak is kept monotone: a
// recompute may raise it but never lower it.
func (s *StreakService) RecomputeAndPersist(userID uint) (models.StreakView, error) {
	var view models.StreakView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		v, err := s.recomputeAndPersistTx(tx, userID, utils.Today())
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	return view, err
}

func (s *StreakService) recomputeAndPersistTx(tx *gorm.DB, userID uint, today string) (models.StreakView, error) {
	snap, err := loadEvidence(tx, userID)
	if err != nil {
		return models.StreakView{}, err
	}

	state, err := getOrCreateStreakState(tx, userID)
	if err != nil {
		return models.StreakView{}, err
	}

	view := deriveStreak(snap, state, today)
	if view.LongestStreak < state.LongestStreak {
		view.LongestStreak = state.LongestStreak
	}

	state.CurrentStreak = view.CurrentStreak
	state.LongestStreak = view.LongestStreak
	state.LastActivityDate = view.LastActivityDate
	if err := tx.Save(state).Error; err != nil {
		return models.StreakView{}, err
	}
	return view, nil
}

// SetAdminBaseline installs a hard streak floor for the user. The baseline
// persists, extendable by later consecutive activity, until cleared.
func (s *StreakService) SetAdminBaseline(userID uint, anchorDate string, streak, longest int) (models.StreakView, error) {
	if !utils.IsValidDay(anchorDate) {
		return models.StreakView{}, ErrInvalidDate
	}
	if streak < 0 || longest < 0 {
		return models.StreakView{}, ErrInvalidBaseline
	}
	if longest < streak {
		longest = streak
	}

	var view models.StreakView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		state, err := getOrCreateStreakState(tx, userID)
		if err != nil {
			return err
		}
		state.AdminBaselineDate = anchorDate
		state.AdminBaselineStreak = streak
		state.AdminBaselineLongest = longest
		if err := tx.Save(state).Error; err != nil {
			return err
		}
		view, err = s.recomputeAndPersistTx(tx, userID, utils.Today())
		return err
	})
	return view, err
}

// ClearAdminBaseline removes the baseline floor and recomputes.
func (s *StreakService) ClearAdminBaseline(userID uint) (models.StreakView, error) {
	var view models.StreakView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		state, err := getOrCreateStreakState(tx, userID)
		if err != nil {
			return err
		}
		state.AdminBaselineDate = ""
		state.AdminBaselineStreak = 0
		state.AdminBaselineLongest = 0
		if err := tx.Save(state).Error; err != nil {
			return err
		}
		view, err = s.recomputeAndPersistTx(tx, userID, utils.Today())
		return err
	})
	return view, err
}

// loadEvidence collects the verification-relevant dates for a user.
func loadEvidence(tx *gorm.DB, userID uint) (evidenceSnapshot, error) {
	var snap evidenceSnapshot

	var approved []string
	if err := tx.Model(&models.Upload{}).
		Where("user_id = ? AND status = ?", userID, models.UploadApproved).
		Pluck("date", &approved).Error; err != nil {
		return snap, err
	}

	var rests []string
	if err := tx.Model(&models.RestDay{}).
		Where("user_id = ?", userID).
		Pluck("date", &rests).Error; err != nil {
		return snap, err
	}

	seen := make(map[string]bool, len(approved)+len(rests))
	for _, d := range approved {
		seen[d] = true
	}
	for _, d := range rests {
		seen[d] = true
	}
	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)
	snap.validDays = days

	var rejected sql.NullString
	err := tx.Model(&models.Upload{}).
		Where("user_id = ? AND status = ?", userID, models.UploadRejected).
		Select("MAX(date)").
		Scan(&rejected).Error
	if err != nil {
		return snap, err
	}
	if rejected.Valid {
		snap.latestRejected = rejected.String
	}

	return snap, nil
}

// deriveStreak is the pure streak computation. It never touches storage.
func deriveStreak(snap evidenceSnapshot, state *models.StreakState, today string) models.StreakView {
	yesterday := utils.MustAddDays(today, -1)
	days := snap.validDays

	daySet := make(map[string]bool, len(days))
	for _, d := range days {
		daySet[d] = true
	}

	// Tail run ending at the latest valid-activity date, and the longest run
	// anywhere in the history.
	var current, longestRun, run int
	var lastActivity string
	for i, d := range days {
		if i == 0 || !utils.IsConsecutiveDay(days[i-1], d) {
			run = 1
		} else {
			run++
		}
		if run > longestRun {
			longestRun = run
		}
		lastActivity = d
	}
	current = run

	// The tail run only counts while it is alive: its last day must be today
	// or yesterday, otherwise the streak has lapsed.
	if lastActivity == "" || (lastActivity != today && lastActivity != yesterday) {
		current = 0
	}

	// Admin baseline: extend the floor forward through consecutive activity
	// immediately after the anchor, then let it win if it both reaches at
	// least as far as the computed run and is numerically larger.
	baselineEnd := ""
	if state != nil && state.AdminBaselineStreak > 0 && state.AdminBaselineDate != "" {
		baselineEnd = state.AdminBaselineDate
		baselineValue := state.AdminBaselineStreak
		for daySet[utils.MustAddDays(baselineEnd, 1)] {
			baselineEnd = utils.MustAddDays(baselineEnd, 1)
			baselineValue++
		}
		if utils.DayIsOnOrAfter(baselineEnd, lastActivity) && baselineValue > current {
			current = baselineValue
			if baselineEnd > lastActivity {
				lastActivity = baselineEnd
			}
		}
	}

	// Rejection override: a rejection for today or yesterday breaks the
	// streak outright unless later valid activity supersedes it. On a date
	// tie the rejection wins, baseline included: moderation outranks an
	// administrative floor for same-day evidence.
	if snap.latestRejected != "" &&
		(snap.latestRejected == today || snap.latestRejected == yesterday) {
		superseded := false
		for _, d := range days {
			if d > snap.latestRejected {
				superseded = true
				break
			}
		}
		if baselineEnd > snap.latestRejected {
			superseded = true
		}
		if !superseded {
			current = 0
		}
	}

	longest := longestRun
	if current > longest {
		longest = current
	}
	if state != nil {
		if state.LongestStreak > longest {
			longest = state.LongestStreak
		}
		if state.AdminBaselineLongest > longest {
			longest = state.AdminBaselineLongest
		}
	}

	return models.StreakView{
		CurrentStreak:    current,
		LongestStreak:    longest,
		LastActivityDate: lastActivity,
	}
}

// getStreakState loads the user's streak row without creating it.
func getStreakState(tx *gorm.DB, userID uint) (*models.StreakState, error) {
	var state models.StreakState
	if err := tx.Where("user_id = ?", userID).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// getOrCreateStreakState loads the user's streak row, creating it lazily.
// The OnConflict clause keeps concurrent first touches from racing.
func getOrCreateStreakState(tx *gorm.DB, userID uint) (*models.StreakState, error) {
	state, err := getStreakState(tx, userID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := models.StreakState{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, err
	}
	return getStreakState(tx, userID)
}
