package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/gritday/gritday/services"
	"github.com/gritday/gritday/utils"
)

// rollupSeen remembers, per process, the last day a user's rollup ran so the
// sweep fires at most once per user per day per instance. The watermark in
// storage makes extra triggers harmless; this just avoids pointless work.
var rollupSeen sync.Map // map[uint]string

// DailyRollupTrigger runs the missed-day rollup opportunistically on the
// first authenticated request of each calendar day. Failures are logged and
// never block the request: an unadvanced watermark simply retries on the
// next trigger. Must run after AuthRequired.
func DailyRollupTrigger(rollup *services.RollupService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if userID, ok := UserID(ctx); ok {
			today := utils.Today()
			if last, _ := rollupSeen.Load(userID); last != today {
				if _, err := rollup.Run(userID); err != nil {
					if utils.Sugar != nil {
						utils.Sugar.Warnf("daily rollup failed user=%d: %v", userID, err)
					}
				} else {
					rollupSeen.Store(userID, today)
				}
			}
		}
		ctx.Next()
	}
}
