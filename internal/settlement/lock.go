package settlement

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"racebet/internal/models"
	"racebet/internal/repository"
)

// acquireLock claims the period lock row. A stale row left behind by a
// crashed holder is deleted once its TTL passes, then the insert is retried
// exactly once; losing that retry means a live racer got there first.
func (e *Engine) acquireLock(ctx context.Context, period int64) error {
	ttl := e.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	now := e.now()
	lock := &models.PeriodLock{
		Period:     period,
		Holder:     e.Holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	err := e.Repo.InsertPeriodLock(ctx, lock)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrLockHeld) {
		return err
	}

	removed, err := e.Repo.DeleteExpiredPeriodLock(ctx, period, now)
	if err != nil {
		return err
	}
	if !removed {
		return ErrPeriodBusy
	}
	if e.Logger != nil {
		e.Logger.Warn("reclaimed expired period lock", zap.Int64("period", period))
	}

	err = e.Repo.InsertPeriodLock(ctx, lock)
	if errors.Is(err, repository.ErrLockHeld) {
		return ErrPeriodBusy
	}
	return err
}

func (e *Engine) releaseLock(ctx context.Context, period int64) {
	if err := e.Repo.DeletePeriodLock(ctx, period, e.Holder); err != nil && e.Logger != nil {
		e.Logger.Error("release period lock",
			zap.Int64("period", period), zap.Error(err))
	}
}
