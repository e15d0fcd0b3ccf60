package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"racebet/internal/analysis"
	"racebet/internal/config"
	"racebet/internal/draw"
	"racebet/internal/models"
	"racebet/internal/repository"
	"racebet/internal/settlement"
)

// PolicyResolver hands out the single active control record. The agent
// management service owns it; this core only reads.
type PolicyResolver interface {
	GetActivePolicy(ctx context.Context) (*models.ControlPolicy, error)
}

// ResultNotifier receives one best-effort push per drawn result.
type ResultNotifier interface {
	NotifyResult(ctx context.Context, period int64, permutation [10]int, drawnAt time.Time) error
}

// DrawService runs the per-period pipeline: analyze wagers, generate the
// result, persist and verify it, publish, then settle after a short delay.
type DrawService struct {
	Repo      repository.Repository
	Generator *draw.Generator
	Engine    *settlement.Engine
	Policies  PolicyResolver
	Notifier  ResultNotifier
	Config    config.SettlementConfig
	Logger    *zap.Logger

	// Broadcast pushes a drawn result to connected feed subscribers.
	Broadcast func(result models.Result)
}

// RunPeriod drives one period from draw to settlement. Settlement contention
// is not an error: a busy lock means another node is already finishing the
// same period.
func (s *DrawService) RunPeriod(ctx context.Context, periodID int64) error {
	if s == nil || s.Repo == nil || s.Generator == nil || s.Engine == nil {
		return nil
	}

	result, err := s.drawResult(ctx, periodID)
	if err != nil {
		return err
	}

	s.publish(ctx, result)

	if err := s.waitSettleDelay(ctx); err != nil {
		return err
	}

	if _, err := s.Engine.SettlePeriod(ctx, periodID); err != nil {
		if errors.Is(err, settlement.ErrPeriodBusy) {
			if s.Logger != nil {
				s.Logger.Info("settlement already running elsewhere",
					zap.Int64("period", periodID))
			}
			return nil
		}
		return err
	}
	return nil
}

// drawResult generates and persists the permutation, then reads it back and
// compares. A mismatch aborts before any wager is evaluated: settling
// against a result nobody actually published is the one unrecoverable state.
func (s *DrawService) drawResult(ctx context.Context, periodID int64) (*models.Result, error) {
	if existing, err := s.Repo.GetResultByPeriod(ctx, periodID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	wagers, err := s.Repo.ListWagersByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("list wagers for period %d: %w", periodID, err)
	}

	policy := s.resolvePolicy(ctx, periodID)
	targets, err := s.resolveTargets(ctx, periodID, policy, wagers)
	if err != nil {
		return nil, err
	}

	outcome := s.Generator.Generate(draw.Input{
		Period:       periodID,
		Policy:       policy,
		Analysis:     analysis.Analyze(wagers),
		TargetWagers: targets,
	})

	result := &models.Result{Period: periodID, Strategy: outcome.Strategy}
	result.SetPositions(outcome.Permutation)
	if err := s.Repo.UpsertResult(ctx, result); err != nil {
		return nil, fmt.Errorf("persist result for period %d: %w", periodID, err)
	}

	stored, err := s.Repo.GetResultByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Positions() != outcome.Permutation {
		return nil, fmt.Errorf("result verification failed for period %d: stored row does not match generated permutation", periodID)
	}

	if err := s.Repo.UpdatePeriodState(ctx, periodID, models.PeriodStateDrawing); err != nil {
		return nil, err
	}
	return stored, nil
}

// resolvePolicy falls back to normal when the collaborator is down or the
// policy has not reached its start period yet.
func (s *DrawService) resolvePolicy(ctx context.Context, periodID int64) *models.ControlPolicy {
	if s.Policies == nil {
		return &models.ControlPolicy{Mode: models.ControlModeNormal}
	}
	policy, err := s.Policies.GetActivePolicy(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("control policy fetch failed, drawing normal",
				zap.Int64("period", periodID), zap.Error(err))
		}
		return &models.ControlPolicy{Mode: models.ControlModeNormal}
	}
	if policy != nil && policy.StartPeriod > periodID {
		return &models.ControlPolicy{Mode: models.ControlModeNormal}
	}
	return policy
}

func (s *DrawService) publish(ctx context.Context, result *models.Result) {
	if s.Broadcast != nil {
		s.Broadcast(*result)
	}
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.NotifyResult(ctx, result.Period, result.Positions(), result.CreatedAt); err != nil && s.Logger != nil {
		s.Logger.Warn("result notification failed",
			zap.Int64("period", result.Period), zap.Error(err))
	}
}

func (s *DrawService) waitSettleDelay(ctx context.Context) error {
	delay := s.Config.SettleDelay
	if delay <= 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
