package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"registration-service/cmd/api/di"
	ginrouter "registration-service/internal/adapter/gin/router"
	"registration-service/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Gin    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := ginrouter.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Bootstrap:      c.LazyBootstrap(),
	}

	return &Server{
		Config: cfg,
		Logger: l,
		Gin:    SetupGinServer(c.GinHandler, opts, httpAddress(cfg), l),
	}
}

// Start listens on the HTTP port and serves until Shutdown is called
func (s *Server) Start() error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(context.Background(), "tcp", s.Gin.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.Logger.Info("HTTP server running", zap.String("address", lis.Addr().String()))

	if err := s.Gin.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// httpAddress returns the HTTP server address
func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
