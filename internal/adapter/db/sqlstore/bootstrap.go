package sqlstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Bootstrapper verifies connectivity and converges the schema once per
// process. Concurrent callers share a single attempt; a failed attempt is
// retried by the next caller.
type Bootstrapper struct {
	db    *gorm.DB
	log   *zap.Logger
	group singleflight.Group
	done  atomic.Bool

	run func(ctx context.Context) error
}

// NewBootstrapper creates a Bootstrapper for the user schema.
func NewBootstrapper(db *gorm.DB, log *zap.Logger) *Bootstrapper {
	b := &Bootstrapper{db: db, log: log}
	b.run = b.migrate
	return b
}

// Ensure runs the bootstrap if it has not completed yet.
func (b *Bootstrapper) Ensure(ctx context.Context) error {
	if b.done.Load() {
		return nil
	}

	_, err, _ := b.group.Do("bootstrap", func() (any, error) {
		if b.done.Load() {
			return nil, nil
		}
		runCtx, cancel := detach(ctx)
		defer cancel()

		if err := b.run(runCtx); err != nil {
			b.log.Error("database bootstrap failed", zap.Error(err))
			return nil, err
		}
		b.done.Store(true)
		return nil, nil
	})
	return err
}

// Ready reports whether the bootstrap has completed.
func (b *Bootstrapper) Ready() bool {
	return b.done.Load()
}

// detach keeps ctx's values and deadline but drops its cancellation, since
// the attempt is shared by every waiting caller.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline)
	}
	return detached, func() {}
}

func (b *Bootstrapper) migrate(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	b.log.Info("database connected", zap.String("dialect", b.db.Dialector.Name()))

	if err := b.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.log.Info("models synced")

	return nil
}
