package router

import (
	"net/http"

	"registration-service/internal/adapter/gin/handler"
	"registration-service/internal/adapter/gin/middleware"
	"registration-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthMessage is the body of the liveness route.
const HealthMessage = "Server is running"

// Options holds the cross-cutting settings of the router
type Options struct {
	AllowedOrigins []string
	// Bootstrap, when set, runs before the first registration succeeds.
	Bootstrap middleware.Ensurer
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, opts Options, log *zap.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(logger.Recovery(log))
	router.Use(logger.RequestID())
	router.Use(logger.AccessLog(log))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	// Health check endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": HealthMessage})
	})

	register := []gin.HandlerFunc{userHandler.Register}
	if opts.Bootstrap != nil {
		register = append([]gin.HandlerFunc{middleware.Bootstrap(opts.Bootstrap, log)}, register...)
	}
	router.POST("/register", register...)

	return router
}
