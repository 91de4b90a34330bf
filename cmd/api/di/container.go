package di

import (
	"context"
	"fmt"
	"time"

	"registration-service/cmd/api/infrastructure"
	"registration-service/internal/adapter/db/sqlstore"
	ginhandler "registration-service/internal/adapter/gin/handler"
	"registration-service/internal/adapter/gin/middleware"
	"registration-service/internal/config"
	"registration-service/internal/usecase/user"
	"registration-service/pkg/security"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// bootstrapTimeout bounds the eager connect and migrate at startup.
const bootstrapTimeout = 30 * time.Second

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	DB           *gorm.DB
	Bootstrapper *sqlstore.Bootstrapper
	UserUC       *user.Usecase
	GinHandler   *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Initialize database
	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	bootstrapper := sqlstore.NewBootstrapper(db, l)
	if cfg.DB.Bootstrap == config.BootstrapEager {
		ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
		err := bootstrapper.Ensure(ctx)
		cancel()
		if err != nil {
			_ = infrastructure.CloseDatabase(db)
			return nil, fmt.Errorf("failed to bootstrap database: %w", err)
		}
	}

	// Initialize mailer
	mailer, err := infrastructure.NewMailer(cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, err
	}

	// Initialize repository
	repo := sqlstore.NewUserRepo(db, l)

	// Initialize use case
	userUC := user.New(
		repo,
		mailer,
		security.NewPasswordHasher(cfg.App.BcryptCost),
		l,
		user.WithVerboseErrors(cfg.App.IsDevelopment()),
	)

	// Initialize Gin handler
	ginHandler := ginhandler.NewUserHandler(userUC, l)

	return &Container{
		Config:       cfg,
		Logger:       l,
		DB:           db,
		Bootstrapper: bootstrapper,
		UserUC:       userUC,
		GinHandler:   ginHandler,
	}, nil
}

// LazyBootstrap returns the bootstrapper when it must run on first request,
// or nil when it already ran at startup.
func (c *Container) LazyBootstrap() middleware.Ensurer {
	if c.Config.DB.Bootstrap == config.BootstrapLazy {
		return c.Bootstrapper
	}
	return nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
