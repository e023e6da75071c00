package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gritday/gritday/middleware"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/services"
	"github.com/gritday/gritday/utils"
)

// TrophyController serves trophy balances and ledger history.
type TrophyController struct {
	db       *gorm.DB
	trophies *services.TrophyService
}

func NewTrophyController(db *gorm.DB, trophies *services.TrophyService) *TrophyController {
	return &TrophyController{db: db, trophies: trophies}
}

// Balance returns the caller's current trophy balance.
func (t *TrophyController) Balance(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	balance, err := t.trophies.Balance(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load balance")
		return
	}
	utils.Success(ctx, gin.H{"balance": balance})
}

// Ledger returns a page of the caller's trophy transactions, newest first.
func (t *TrophyController) Ledger(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	page := 1
	if raw := ctx.Query("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	pageSize := 50

	reason := ctx.Query("reason")
	filtered := func() *gorm.DB {
		q := t.db.Where("user_id = ?", userID)
		if reason != "" {
			q = q.Where("reason = ?", models.TrophyReason(reason))
		}
		return q
	}

	var total int64
	if err := filtered().Model(&models.TrophyTransaction{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to count ledger entries")
		return
	}

	var entries []models.TrophyTransaction
	if err := filtered().
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to load ledger entries")
		return
	}

	utils.Success(ctx, gin.H{
		"entries":   entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AdminAdjust applies a manual trophy correction to a user (admin only).
func (t *TrophyController) AdminAdjust(ctx *gin.Context) {
	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid user id")
		return
	}

	type request struct {
		Delta  int    `json:"delta" binding:"required"`
		Detail string `json:"detail"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40071, "invalid request payload")
		return
	}

	applied, err := t.trophies.AdminAdjust(uint(targetID), req.Delta, req.Detail)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to apply adjustment")
		return
	}

	utils.InvalidateByPrefix(utils.UserCachePrefix(uint(targetID)))
	utils.Success(ctx, gin.H{"applied": applied})
}
