package server

import (
	"net/http"
	"time"

	ginhandler "registration-service/internal/adapter/gin/handler"
	ginrouter "registration-service/internal/adapter/gin/router"

	"go.uber.org/zap"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(
	handler *ginhandler.UserHandler,
	opts ginrouter.Options,
	ginAddr string,
	l *zap.Logger,
) *http.Server {
	// Setup Gin router with all middleware and routes
	router := ginrouter.SetupRouter(handler, opts, l)

	l.Info("Gin REST API configured",
		zap.String("address", ginAddr),
		zap.Strings("allowed_origins", opts.AllowedOrigins),
		zap.Bool("lazy_bootstrap", opts.Bootstrap != nil),
	)

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
