package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pbxconnect-backend/pkg/logger"
	"pbxconnect-backend/pkg/response"
)

// Recovery converts panics into a 500 envelope instead of dropping the
// connection
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				response.InternalError(c, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
