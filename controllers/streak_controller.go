package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gritday/gritday/middleware"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/services"
	"github.com/gritday/gritday/utils"
)

// StreakController serves the derived streak view plus the admin baseline
// override endpoints.
type StreakController struct {
	db      *gorm.DB
	streaks *services.StreakService
}

func NewStreakController(db *gorm.DB, streaks *services.StreakService) *StreakController {
	return &StreakController{db: db, streaks: streaks}
}

const streakCacheTTL = 60 * time.Second

// Get returns the caller's streak, computed fresh from evidence. The view
// is cached briefly; any write path invalidates the user's cache prefix.
func (s *StreakController) Get(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	cacheKey := utils.UserViewCacheKey("streak", userID)
	if raw, hit := utils.CacheGetBytes(cacheKey); hit {
		var view models.StreakView
		if err := json.Unmarshal(raw, &view); err == nil {
			utils.Success(ctx, view)
			return
		}
	}

	view, err := s.streaks.RecomputeAndPersist(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to compute streak")
		return
	}

	utils.CacheSetJSON(cacheKey, view, streakCacheTTL)
	utils.Success(ctx, view)
}

// SetBaseline installs an admin streak baseline for a user (admin only).
// Used to honor progress imported from outside the system.
func (s *StreakController) SetBaseline(ctx *gin.Context) {
	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid user id")
		return
	}

	type request struct {
		AnchorDate string `json:"anchor_date" binding:"required"`
		Streak     int    `json:"streak" binding:"required"`
		Longest    int    `json:"longest"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid request payload")
		return
	}

	view, err := s.streaks.SetAdminBaseline(uint(targetID), req.AnchorDate, req.Streak, req.Longest)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDate):
			utils.Error(ctx, http.StatusBadRequest, 40062, "anchor_date must be formatted YYYY-MM-DD")
		case errors.Is(err, services.ErrInvalidBaseline):
			utils.Error(ctx, http.StatusBadRequest, 40063, "baseline values must be positive")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to set baseline")
		}
		return
	}

	utils.InvalidateByPrefix(utils.UserCachePrefix(uint(targetID)))
	utils.Success(ctx, view)
}

// ClearBaseline removes a user's admin baseline (admin only).
func (s *StreakController) ClearBaseline(ctx *gin.Context) {
	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid user id")
		return
	}

	view, err := s.streaks.ClearAdminBaseline(uint(targetID))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to clear baseline")
		return
	}

	utils.InvalidateByPrefix(utils.UserCachePrefix(uint(targetID)))
	utils.Success(ctx, view)
}
