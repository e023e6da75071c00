package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gritday/gritday/config"
	"github.com/gritday/gritday/controllers"
	"github.com/gritday/gritday/middleware"
	"github.com/gritday/gritday/services"
	"github.com/gritday/gritday/utils"
)

// SetupRouter wires routes, middlewares, services and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Service graph. Verification fans out to the ledger, streaks and
	// challenge outcomes; rollup reuses the same services.
	trophies := services.NewTrophyService(db)
	streaks := services.NewStreakService(db)
	challenges := services.NewChallengeService(db, trophies, streaks)
	verification := services.NewVerificationService(db, trophies, streaks, challenges,
		services.NopNotifier{}, services.NopAchievementSink{})
	rollup := services.NewRollupService(db, trophies, streaks)

	authController := controllers.NewAuthController(db)
	uploadController := controllers.NewUploadController(db, challenges)
	moderationController := controllers.NewModerationController(db, verification)
	challengeController := controllers.NewChallengeController(db, challenges)
	streakController := controllers.NewStreakController(db, streaks)
	trophyController := controllers.NewTrophyController(db, trophies)
	statsController := controllers.NewStatsController(db)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public stats endpoints
	api.GET("/stats", statsController.Global)
	api.GET("/leaderboard", statsController.Leaderboard)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	// Every authenticated request settles missed-day penalties for days
	// that have slipped past before serving the fresh view.
	protected.Use(middleware.DailyRollupTrigger(rollup))

	protected.POST("/uploads", uploadController.Submit)
	protected.GET("/uploads", uploadController.List)

	protected.GET("/challenges/active", challengeController.Active)
	protected.GET("/challenges/history", challengeController.History)
	protected.POST("/challenges/:id/rest-day", challengeController.UseRestDay)

	protected.GET("/streak", streakController.Get)

	protected.GET("/trophies/balance", trophyController.Balance)
	protected.GET("/trophies/ledger", trophyController.Ledger)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.GET("/moderation/queue", moderationController.Queue)
	admin.POST("/moderation/uploads/:id", moderationController.Decide)
	admin.PUT("/users/:id/streak-baseline", streakController.SetBaseline)
	admin.DELETE("/users/:id/streak-baseline", streakController.ClearBaseline)
	admin.POST("/users/:id/trophies", trophyController.AdminAdjust)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
