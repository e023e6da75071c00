package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gritday/gritday/middleware"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/services"
	"github.com/gritday/gritday/utils"
)

// UploadController handles submission and listing of daily photo evidence.
type UploadController struct {
	db         *gorm.DB
	challenges *services.ChallengeService
}

func NewUploadController(db *gorm.DB, challenges *services.ChallengeService) *UploadController {
	return &UploadController{db: db, challenges: challenges}
}

// Submit records a pending evidence upload for a day inside the caller's
// active challenge window. One upload per user per day; submissions never
// award trophies directly, only a later moderator decision does.
func (u *UploadController) Submit(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	type request struct {
		Date    string `json:"date"`
		Caption string `json:"caption"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	if req.Date == "" {
		req.Date = utils.Today()
	}
	if !utils.IsValidDay(req.Date) {
		utils.Error(ctx, http.StatusBadRequest, 40031, "date must be formatted YYYY-MM-DD")
		return
	}
	if req.Date > utils.Today() {
		utils.Error(ctx, http.StatusBadRequest, 40032, "cannot submit evidence for a future date")
		return
	}

	challenge, err := u.challenges.GetOrCreateActive(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to resolve active challenge")
		return
	}
	if !challenge.ContainsDay(req.Date) {
		utils.Error(ctx, http.StatusBadRequest, 40033, "date falls outside the active challenge window")
		return
	}

	var existing models.Upload
	if err := u.db.Where("user_id = ? AND date = ?", userID, req.Date).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40930, "evidence already submitted for this date")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to check existing evidence")
		return
	}

	var restClaim models.RestDay
	if err := u.db.Where("user_id = ? AND date = ?", userID, req.Date).First(&restClaim).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40931, "a rest day is already claimed for this date")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to check rest day claims")
		return
	}

	upload := models.Upload{
		UserID:      userID,
		ChallengeID: challenge.ID,
		Date:        req.Date,
		Status:      models.UploadPending,
		PhotoKey:    uuid.NewString(),
		Caption:     utils.SanitizeCaption(req.Caption),
	}
	if err := u.db.Create(&upload).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to save evidence")
		return
	}

	utils.Success(ctx, upload)
}

// List returns the caller's own uploads, newest first. Optional
// challenge_id and status queries narrow the result.
func (u *UploadController) List(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	q := u.db.Where("user_id = ?", userID)
	if raw := ctx.Query("challenge_id"); raw != "" {
		challengeID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40034, "invalid challenge_id")
			return
		}
		q = q.Where("challenge_id = ?", challengeID)
	}
	if raw := ctx.Query("status"); raw != "" {
		status := models.UploadStatus(raw)
		if !status.Valid() {
			utils.Error(ctx, http.StatusBadRequest, 40035, "unknown status filter")
			return
		}
		q = q.Where("status = ?", status)
	}

	var uploads []models.Upload
	if err := q.Order("date DESC").Limit(100).Find(&uploads).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to list uploads")
		return
	}

	utils.Success(ctx, uploads)
}
