package infrastructure

import (
	"fmt"
	"time"

	"registration-service/internal/config"
	"registration-service/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection with GORM configuration.
// With a lazy bootstrap no round trip is made until the first query.
func NewDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	lazy := cfg.DB.Bootstrap == config.BootstrapLazy

	// Configure GORM logger
	gormLogger := logger.NewGormLogger(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level)

	dialector, err := newDialector(&cfg.DB, lazy)
	if err != nil {
		return nil, err
	}

	// Open database connection
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               gormLogger,
		TranslateError:       true,
		DisableAutomaticPing: lazy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	maxOpen := cfg.DB.MaxOpenConns
	if cfg.DB.Driver == config.DriverSQLite {
		// SQLite allows a single writer.
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DB.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DB.ConnMaxIdleTime) * time.Second)

	l.Info("database configured",
		zap.String("driver", cfg.DB.Driver),
		zap.String("bootstrap", cfg.DB.Bootstrap),
		zap.Int("max_open_conns", maxOpen),
		zap.Int("max_idle_conns", cfg.DB.MaxIdleConns),
		zap.Int("conn_max_lifetime_seconds", cfg.DB.ConnMaxLifetime),
		zap.Int("conn_max_idle_time_seconds", cfg.DB.ConnMaxIdleTime),
	)

	return db, nil
}

func newDialector(cfg *config.DatabaseConfig, lazy bool) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return pgdriver.Open(cfg.DSN()), nil
	case config.DriverMySQL:
		return mysql.New(mysql.Config{
			DSN:                       cfg.DSN(),
			SkipInitializeWithVersion: lazy,
		}), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// CloseDatabase closes the database connection
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
