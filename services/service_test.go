package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gritday/gritday/config"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.SetForTesting(config.AppConfig{JWTSecret: "test-secret"})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Upload{},
		&models.RestDay{},
		&models.Challenge{},
		&models.StreakState{},
		&models.TrophyTransaction{},
	))
	return db
}

// newTestUser creates a user registered the given number of days before today.
func newTestUser(t *testing.T, db *gorm.DB, daysRegistered int) models.User {
	t.Helper()
	user := models.User{
		Username:         "grinder",
		PasswordHash:     "x",
		RegistrationDate: utils.MustAddDays(utils.Today(), -daysRegistered),
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// seedUpload inserts an upload with the given status for a day relative to
// today (0 = today, -1 = yesterday).
func seedUpload(t *testing.T, db *gorm.DB, userID, challengeID uint, dayOffset int, status models.UploadStatus) models.Upload {
	t.Helper()
	up := models.Upload{
		UserID:      userID,
		ChallengeID: challengeID,
		Date:        utils.MustAddDays(utils.Today(), dayOffset),
		Status:      status,
		PhotoKey:    "test-key",
	}
	require.NoError(t, db.Create(&up).Error)
	return up
}

// seedRestDay inserts a rest-day claim for a day relative to today.
func seedRestDay(t *testing.T, db *gorm.DB, userID, challengeID uint, dayOffset int) {
	t.Helper()
	rd := models.RestDay{
		UserID:      userID,
		ChallengeID: challengeID,
		Date:        utils.MustAddDays(utils.Today(), dayOffset),
	}
	require.NoError(t, db.Create(&rd).Error)
}

// grantBalance gives the user headroom so negative ledger syncs are not
// clamped away in tests that exercise exact deltas.
func grantBalance(t *testing.T, db *gorm.DB, trophies *TrophyService, userID uint, amount int) {
	t.Helper()
	_, err := trophies.AdminAdjust(userID, amount, "test funding")
	require.NoError(t, err)
}
