package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/utils"
)

// StatsController serves global counters and the trophy leaderboard.
type StatsController struct {
	db *gorm.DB
}

func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

const (
	statsCacheKey       = "stats:global"
	leaderboardCacheKey = "stats:leaderboard"
	statsCacheTTL       = 5 * time.Minute
)

// Global returns sitewide counters. Cached because the counts are cheap to
// stale and expensive to scan.
func (s *StatsController) Global(ctx *gin.Context) {
	if raw, hit := utils.CacheGetBytes(statsCacheKey); hit {
		var cached gin.H
		if err := json.Unmarshal(raw, &cached); err == nil {
			utils.Success(ctx, cached)
			return
		}
	}

	var users, uploadsApproved, challengesCompleted int64
	if err := s.db.Model(&models.User{}).Count(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to compute stats")
		return
	}
	if err := s.db.Model(&models.Upload{}).
		Where("status = ?", models.UploadApproved).Count(&uploadsApproved).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to compute stats")
		return
	}
	if err := s.db.Model(&models.Challenge{}).
		Where("status = ?", models.ChallengeCompleted).Count(&challengesCompleted).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to compute stats")
		return
	}

	payload := gin.H{
		"users":                users,
		"approved_uploads":     uploadsApproved,
		"completed_challenges": challengesCompleted,
	}
	utils.CacheSetJSON(statsCacheKey, payload, statsCacheTTL)
	utils.Success(ctx, payload)
}

// leaderboardRow is one public leaderboard entry.
type leaderboardRow struct {
	Username string `json:"username"`
	Trophies int    `json:"trophies"`
}

// Leaderboard returns the top users by trophy balance.
func (s *StatsController) Leaderboard(ctx *gin.Context) {
	if raw, hit := utils.CacheGetBytes(leaderboardCacheKey); hit {
		var cached []leaderboardRow
		if err := json.Unmarshal(raw, &cached); err == nil {
			utils.Success(ctx, cached)
			return
		}
	}

	var rows []leaderboardRow
	if err := s.db.Model(&models.User{}).
		Select("username", "trophies").
		Order("trophies DESC").
		Limit(20).
		Scan(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to load leaderboard")
		return
	}

	utils.CacheSetJSON(leaderboardCacheKey, rows, statsCacheTTL)
	utils.Success(ctx, rows)
}
