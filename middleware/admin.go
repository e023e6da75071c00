package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gritday/gritday/config"
	"github.com/gritday/gritday/utils"
)

// AdminRequired allows only configured administrator usernames through.
// Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		name, ok := Username(ctx)
		if !ok || !config.IsAdminUsername(name) {
			utils.Error(ctx, http.StatusForbidden, 40301, "administrator access required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
