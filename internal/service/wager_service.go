package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"racebet/internal/models"
	"racebet/internal/odds"
	"racebet/internal/repository"
)

var (
	ErrBettingClosed       = errors.New("betting window is closed for this period")
	ErrUnknownMember       = errors.New("member does not exist")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// WagerService accepts wagers during the betting window. Odds are locked in
// at placement time; a later odds-table change never reprices an open wager.
type WagerService struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type PlaceWagerRequest struct {
	Username string
	Period   int64
	Family   string
	Selector string
	Position *int
	Stake    decimal.Decimal
}

// PlaceWager validates the play, locks in its odds, debits the stake, and
// records the wager plus a ledger entry, all in one transaction.
func (s *WagerService) PlaceWager(ctx context.Context, req PlaceWagerRequest) (*models.Wager, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("wager service not configured")
	}
	if !req.Stake.IsPositive() {
		return nil, errors.New("stake must be positive")
	}

	period, err := s.Repo.GetPeriod(ctx, req.Period)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if period == nil || period.State != models.PeriodStateBetting || !now.Before(period.BettingClosesAt) {
		return nil, ErrBettingClosed
	}

	var placed *models.Wager
	err = s.Repo.InTx(ctx, func(tx repository.Repository) error {
		member, err := tx.GetMemberForUpdate(ctx, req.Username)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrUnknownMember
		}

		lockedOdds, err := odds.For(member.MarketType, req.Family, req.Selector, req.Position)
		if err != nil {
			return err
		}

		already, err := tx.SumStakeByPlay(ctx, req.Period, req.Username, req.Family, req.Selector, req.Position)
		if err != nil {
			return err
		}
		if err := odds.CheckStake(req.Family, req.Selector, req.Stake, already); err != nil {
			return err
		}

		if member.Balance.LessThan(req.Stake) {
			return ErrInsufficientBalance
		}
		after := member.Balance.Sub(req.Stake)
		if err := tx.UpdateMemberBalance(ctx, member.Username, after); err != nil {
			return err
		}

		w := &models.Wager{
			Period:   req.Period,
			Owner:    member.Username,
			Family:   req.Family,
			Selector: req.Selector,
			Position: req.Position,
			Stake:    req.Stake,
			Odds:     lockedOdds,
			Payout:   decimal.Zero,
		}
		if err := tx.InsertWager(ctx, w); err != nil {
			return err
		}

		if err := tx.InsertTransactionRecord(ctx, &models.TransactionRecord{
			Ref:             uuid.NewString(),
			UserType:        models.UserTypeMember,
			UserID:          member.ID,
			TransactionType: models.TxTypeBet,
			Amount:          req.Stake.Neg(),
			BalanceBefore:   member.Balance,
			BalanceAfter:    after,
			Period:          req.Period,
			MemberUsername:  member.Username,
			WagerID:         w.ID,
			StakeAmount:     req.Stake,
			Description:     fmt.Sprintf("stake on %s/%s", req.Family, req.Selector),
		}); err != nil {
			return err
		}
		placed = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Debug("wager placed",
			zap.Int64("period", req.Period),
			zap.String("owner", req.Username),
			zap.String("family", req.Family),
			zap.String("selector", req.Selector),
			zap.String("stake", req.Stake.String()))
	}
	return placed, nil
}

func (s *WagerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
