package middleware

import (
	"context"
	"net/http"

	"registration-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Ensurer prepares a dependency on first use.
type Ensurer interface {
	Ensure(ctx context.Context) error
}

// Bootstrap runs e before the wrapped handlers. A failed attempt answers the
// request with 400 and is retried by the next request.
func Bootstrap(e Ensurer, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := e.Ensure(c.Request.Context()); err != nil {
			logger.WithContext(c.Request.Context(), log).Error("lazy database bootstrap failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
