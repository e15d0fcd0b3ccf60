// Package settlement evaluates a period's wagers against its published
// result and credits winners and the agent rebate chain, exactly once.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"racebet/internal/models"
	"racebet/internal/repository"
)

// ErrPeriodBusy reports that another holder is settling this period right now.
var ErrPeriodBusy = errors.New("settlement already in flight for period")

const DefaultLockTTL = 30 * time.Second

type Engine struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Holder identifies this process in the period lock table.
	Holder  string
	LockTTL time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func NewEngine(repo repository.Repository, logger *zap.Logger, holder string) *Engine {
	return &Engine{
		Repo:    repo,
		Logger:  logger,
		Holder:  holder,
		LockTTL: DefaultLockTTL,
	}
}

// Summary reports what one settlement run did.
type Summary struct {
	Period         int64
	SettledCount   int
	WinnerCount    int
	TotalPayout    decimal.Decimal
	TotalRebate    decimal.Decimal
	AlreadySettled bool
}

type ownerCredit struct {
	Username string          `json:"username"`
	Wagers   int             `json:"wagers"`
	Amount   decimal.Decimal `json:"amount"`
}

type rebateCredit struct {
	AgentUsername  string          `json:"agent_username"`
	MemberUsername string          `json:"member_username"`
	Rate           decimal.Decimal `json:"rate"`
	Amount         decimal.Decimal `json:"amount"`
}

// SettlePeriod runs the full settlement for one period: evaluate every
// unsettled wager against the stored result, credit each winner once with
// their aggregated payout, cascade rebates up the agent tree, and record a
// settlement log. The whole run is one database transaction under a period
// lock, so a second concurrent call either waits out ErrPeriodBusy or finds
// the settlement log and returns AlreadySettled.
func (e *Engine) SettlePeriod(ctx context.Context, period int64) (*Summary, error) {
	result, err := e.Repo.GetResultByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load result for period %d: %w", period, err)
	}
	if result == nil {
		return nil, fmt.Errorf("no result stored for period %d", period)
	}

	if log, err := e.Repo.GetSettlementLogByPeriod(ctx, period); err != nil {
		return nil, err
	} else if log != nil {
		return &Summary{Period: period, AlreadySettled: true}, nil
	}

	if err := e.acquireLock(ctx, period); err != nil {
		return nil, err
	}
	defer e.releaseLock(ctx, period)

	summary := &Summary{Period: period, TotalPayout: decimal.Zero, TotalRebate: decimal.Zero}
	positions := result.Positions()

	err = e.Repo.InTx(ctx, func(tx repository.Repository) error {
		// Guard again inside the transaction: a racer may have finished
		// between the check above and the lock acquisition.
		if log, err := tx.GetSettlementLogByPeriod(ctx, period); err != nil {
			return err
		} else if log != nil {
			summary.AlreadySettled = true
			return nil
		}

		wagers, err := tx.ListUnsettledWagersForUpdate(ctx, period)
		if err != nil {
			return err
		}

		now := e.now()
		credits := map[string]*ownerCredit{}
		stakes := map[string]decimal.Decimal{}
		var order []string

		for i := range wagers {
			w := wagers[i]
			won := Evaluate(w, positions)
			payout := Payout(w, won)
			flipped, err := tx.MarkWagerSettled(ctx, w.ID, won, payout, now)
			if err != nil {
				return err
			}
			if !flipped {
				continue
			}
			summary.SettledCount++

			if _, ok := stakes[w.Owner]; !ok {
				order = append(order, w.Owner)
				stakes[w.Owner] = decimal.Zero
			}
			stakes[w.Owner] = stakes[w.Owner].Add(w.Stake)

			if won {
				c := credits[w.Owner]
				if c == nil {
					c = &ownerCredit{Username: w.Owner, Amount: decimal.Zero}
					credits[w.Owner] = c
				}
				c.Wagers++
				c.Amount = c.Amount.Add(payout)
			}
		}

		var creditList []ownerCredit
		for _, owner := range order {
			c := credits[owner]
			if c == nil {
				continue
			}
			if err := e.creditWinner(ctx, tx, period, c, now); err != nil {
				return err
			}
			summary.WinnerCount++
			summary.TotalPayout = summary.TotalPayout.Add(c.Amount)
			creditList = append(creditList, *c)
		}

		var rebates []rebateCredit
		for _, owner := range order {
			rs, err := e.cascadeRebates(ctx, tx, period, owner, stakes[owner])
			if err != nil {
				return err
			}
			for _, r := range rs {
				summary.TotalRebate = summary.TotalRebate.Add(r.Amount)
			}
			rebates = append(rebates, rs...)
		}

		details, err := json.Marshal(map[string]any{
			"strategy": result.Strategy,
			"credits":  creditList,
			"rebates":  rebates,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertSettlementLog(ctx, &models.SettlementLog{
			Period:       period,
			SettledCount: summary.SettledCount,
			TotalPayout:  summary.TotalPayout,
			Details:      datatypes.JSON(details),
		}); err != nil {
			return err
		}
		return tx.UpdatePeriodState(ctx, period, models.PeriodStateSettled)
	})
	if err != nil {
		e.recordFailure(ctx, period, err)
		return nil, err
	}

	if e.Logger != nil && !summary.AlreadySettled {
		e.Logger.Info("period settled",
			zap.Int64("period", period),
			zap.Int("settled", summary.SettledCount),
			zap.Int("winners", summary.WinnerCount),
			zap.String("total_payout", summary.TotalPayout.String()),
			zap.String("total_rebate", summary.TotalRebate.String()))
	}
	return summary, nil
}

// creditWinner applies one aggregated balance credit per winning member.
func (e *Engine) creditWinner(ctx context.Context, tx repository.Repository, period int64, c *ownerCredit, now time.Time) error {
	member, err := tx.GetMemberForUpdate(ctx, c.Username)
	if err != nil {
		return err
	}
	if member == nil {
		// Settle the wagers anyway; an orphaned owner is a data problem to
		// surface, not a reason to wedge the whole period.
		if e.Logger != nil {
			e.Logger.Warn("winning owner has no member row",
				zap.Int64("period", period),
				zap.String("owner", c.Username))
		}
		return nil
	}
	before := member.Balance
	after := before.Add(c.Amount)
	if err := tx.UpdateMemberBalance(ctx, member.Username, after); err != nil {
		return err
	}
	return tx.InsertTransactionRecord(ctx, &models.TransactionRecord{
		Ref:             uuid.NewString(),
		UserType:        models.UserTypeMember,
		UserID:          member.ID,
		TransactionType: models.TxTypeWin,
		Amount:          c.Amount,
		BalanceBefore:   before,
		BalanceAfter:    after,
		Period:          period,
		MemberUsername:  member.Username,
		Description:     fmt.Sprintf("winnings for %d wagers", c.Wagers),
		CreatedAt:       now,
	})
}

func (e *Engine) recordFailure(ctx context.Context, period int64, cause error) {
	if err := e.Repo.UpsertFailedSettlement(ctx, &models.FailedSettlement{
		Period: period,
		Error:  cause.Error(),
	}); err != nil && e.Logger != nil {
		e.Logger.Error("record failed settlement",
			zap.Int64("period", period), zap.Error(err))
	}
	if e.Logger != nil {
		e.Logger.Error("settlement failed",
			zap.Int64("period", period), zap.Error(cause))
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}
