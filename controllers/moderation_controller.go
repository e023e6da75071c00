package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gritday/gritday/middleware"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/services"
	"github.com/gritday/gritday/utils"
)

// ModerationController exposes the admin review queue. Decisions are
// reversible; every call routes through the verification service so the
// ledger, streak and challenge outcome stay consistent.
type ModerationController struct {
	db           *gorm.DB
	verification *services.VerificationService
}

func NewModerationController(db *gorm.DB, verification *services.VerificationService) *ModerationController {
	return &ModerationController{db: db, verification: verification}
}

// Queue lists uploads awaiting review, oldest first.
func (m *ModerationController) Queue(ctx *gin.Context) {
	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var uploads []models.Upload
	if err := m.db.Where("status = ?", models.UploadPending).
		Order("created_at ASC").Limit(limit).Find(&uploads).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load review queue")
		return
	}

	utils.Success(ctx, uploads)
}

// Decide sets an upload's verification status. The same endpoint serves
// first decisions and reversals of earlier ones.
func (m *ModerationController) Decide(ctx *gin.Context) {
	reviewerID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	uploadID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid upload id")
		return
	}

	type request struct {
		Status models.UploadStatus `json:"status" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
		return
	}
	if !req.Status.Valid() || !req.Status.Terminal() {
		utils.Error(ctx, http.StatusBadRequest, 40042, "status must be approved or rejected")
		return
	}

	upload, err := m.verification.Decide(uint(uploadID), reviewerID, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrUploadNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "upload not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to apply decision")
		return
	}

	utils.Success(ctx, upload)
}
