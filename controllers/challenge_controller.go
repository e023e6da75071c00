package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gritday/gritday/middleware"
	"github.com/gritday/gritday/services"
	"github.com/gritday/gritday/utils"
)

// ChallengeController exposes the weekly challenge surface.
type ChallengeController struct {
	db         *gorm.DB
	challenges *services.ChallengeService
}

func NewChallengeController(db *gorm.DB, challenges *services.ChallengeService) *ChallengeController {
	return &ChallengeController{db: db, challenges: challenges}
}

// Active returns the caller's current challenge, materializing it lazily.
// Any expired predecessor is finalized as a side effect.
func (c *ChallengeController) Active(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	challenge, err := c.challenges.GetOrCreateActive(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to resolve active challenge")
		return
	}
	utils.Success(ctx, challenge)
}

// History lists the caller's past weeks, newest first.
func (c *ChallengeController) History(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	limit := 20
	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	history, err := c.challenges.History(userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to load challenge history")
		return
	}
	utils.Success(ctx, history)
}

// UseRestDay spends one rest day from the active challenge's quota.
func (c *ChallengeController) UseRestDay(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	challengeID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid challenge id")
		return
	}

	type request struct {
		Date string `json:"date"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid request payload")
		return
	}
	if req.Date == "" {
		req.Date = utils.Today()
	}

	view, err := c.challenges.UseRestDay(userID, uint(challengeID), req.Date)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDate):
			utils.Error(ctx, http.StatusBadRequest, 40052, "date must be formatted YYYY-MM-DD")
		case errors.Is(err, services.ErrFutureDate):
			utils.Error(ctx, http.StatusBadRequest, 40053, "cannot claim a rest day for a future date")
		case errors.Is(err, services.ErrChallengeNotFound):
			utils.Error(ctx, http.StatusNotFound, 40450, "challenge not found")
		case errors.Is(err, services.ErrNotYourChallenge):
			utils.Error(ctx, http.StatusForbidden, 40350, "challenge belongs to another user")
		case errors.Is(err, services.ErrChallengeNotActive):
			utils.Error(ctx, http.StatusConflict, 40950, "challenge is no longer active")
		case errors.Is(err, services.ErrOutsideWindow):
			utils.Error(ctx, http.StatusBadRequest, 40054, "date falls outside the challenge window")
		case errors.Is(err, services.ErrDuplicateEvidence):
			utils.Error(ctx, http.StatusConflict, 40951, "the date already has evidence or a rest claim")
		case errors.Is(err, services.ErrRestQuotaExhausted):
			utils.Error(ctx, http.StatusConflict, 40952, "no rest days remaining this week")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to claim rest day")
		}
		return
	}

	utils.InvalidateByPrefix(utils.UserCachePrefix(userID))
	utils.Success(ctx, view)
}
