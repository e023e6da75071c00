package main

import (
	"time"

	"github.com/gritday/gritday/config"
	"github.com/gritday/gritday/models"
	"github.com/gritday/gritday/routes"
	"github.com/gritday/gritday/services"
	"github.com/gritday/gritday/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Upload{},
		&models.RestDay{},
		&models.Challenge{},
		&models.StreakState{},
		&models.TrophyTransaction{},
	)

	r := routes.SetupRouter(db)

	// Background purge of evidence rows past the retention horizon
	services.StartRetentionPurge(db, time.Duration(cfg.PurgeIntervalMinutes)*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
