package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"racebet/internal/config"
	"racebet/internal/models"
	"racebet/internal/period"
	"racebet/internal/repository"
)

// PeriodScheduler owns the period lifecycle: it opens the next betting
// period and fires the draw pipeline once a period's draw time passes. The
// cron runner invokes Tick on a short interval; every step inside is
// idempotent, so overlapping nodes just race harmlessly.
type PeriodScheduler struct {
	Repo   repository.Repository
	Draw   *DrawService
	Config config.GameConfig
	Logger *zap.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (s *PeriodScheduler) Tick(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if err := s.ensureOpenPeriod(ctx); err != nil {
		return err
	}
	if err := s.drawDuePeriods(ctx); err != nil {
		return err
	}
	return s.retryStuckPeriods(ctx)
}

// ensureOpenPeriod guarantees a betting period exists whose draw time lies
// ahead of the clock.
func (s *PeriodScheduler) ensureOpenPeriod(ctx context.Context) error {
	now := s.now()
	latest, err := s.Repo.GetLatestPeriod(ctx)
	if err != nil {
		return err
	}
	if latest != nil && latest.State == models.PeriodStateBetting && latest.DrawAt.After(now) {
		return nil
	}

	interval := s.Config.PeriodInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	cutoff := s.Config.BettingCutoff
	if cutoff <= 0 || cutoff >= interval {
		cutoff = 30 * time.Second
	}

	var id int64
	if latest == nil {
		id = period.First(now)
	} else {
		id = period.Next(latest.ID, now)
	}

	next := &models.Period{
		ID:              id,
		State:           models.PeriodStateBetting,
		BettingClosesAt: now.Add(interval - cutoff),
		DrawAt:          now.Add(interval),
	}
	if err := s.Repo.UpsertPeriod(ctx, next); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("betting period opened",
			zap.Int64("period", id),
			zap.Time("betting_closes_at", next.BettingClosesAt),
			zap.Time("draw_at", next.DrawAt))
	}
	return nil
}

// drawDuePeriods runs the pipeline for every betting period whose draw time
// has passed. Failures are logged per period and do not stop the sweep; the
// failed settlement record carries the retry state.
func (s *PeriodScheduler) drawDuePeriods(ctx context.Context) error {
	due, err := s.Repo.ListPeriodsByState(ctx, models.PeriodStateBetting, 50)
	if err != nil {
		return err
	}
	now := s.now()
	for _, p := range due {
		if p.DrawAt.After(now) {
			continue
		}
		if s.Draw == nil {
			continue
		}
		if err := s.Draw.RunPeriod(ctx, p.ID); err != nil {
			if s.Logger != nil {
				s.Logger.Error("period pipeline failed",
					zap.Int64("period", p.ID), zap.Error(err))
			}
		}
	}
	return nil
}

// retryStuckPeriods picks up periods that drew a result but never reached
// the settled state, e.g. after a crash between publication and settlement.
// RunPeriod finds the stored result and goes straight to settling.
func (s *PeriodScheduler) retryStuckPeriods(ctx context.Context) error {
	stuck, err := s.Repo.ListPeriodsByState(ctx, models.PeriodStateDrawing, 50)
	if err != nil {
		return err
	}
	now := s.now()
	for _, p := range stuck {
		if p.DrawAt.After(now.Add(-time.Minute)) {
			// Give the in-flight pipeline a chance to finish first.
			continue
		}
		if s.Draw == nil {
			continue
		}
		if err := s.Draw.RunPeriod(ctx, p.ID); err != nil && s.Logger != nil {
			s.Logger.Error("stuck period retry failed",
				zap.Int64("period", p.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *PeriodScheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
