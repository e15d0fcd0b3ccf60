package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"racebet/internal/models"
	"racebet/internal/repository"
)

// maxRebateDepth bounds the ancestry walk. Real agent trees are a handful of
// levels deep; anything past this indicates a corrupted parent chain.
const maxRebateDepth = 32

// cascadeRebates credits each ancestor of the member's agent with its margin
// over what the levels below already took. Margins telescope, so the total
// paid out for one member equals the topmost agent's rate times the stake.
// The walk is iterative and stops at the depth bound rather than recursing.
func (e *Engine) cascadeRebates(ctx context.Context, tx repository.Repository, period int64, owner string, stake decimal.Decimal) ([]rebateCredit, error) {
	if !stake.IsPositive() {
		return nil, nil
	}
	member, err := tx.GetMemberByUsername(ctx, owner)
	if err != nil {
		return nil, err
	}
	if member == nil || member.AgentID == 0 {
		return nil, nil
	}

	var credits []rebateCredit
	distributed := decimal.Zero
	seen := map[uint64]bool{}
	agentID := member.AgentID

	for depth := 0; ; depth++ {
		if depth >= maxRebateDepth || seen[agentID] {
			if e.Logger != nil {
				e.Logger.Warn("rebate walk aborted",
					zap.Int64("period", period),
					zap.String("member", owner),
					zap.Uint64("agent_id", agentID),
					zap.Int("depth", depth))
			}
			break
		}
		seen[agentID] = true

		agent, err := tx.GetAgentForUpdate(ctx, agentID)
		if err != nil {
			return nil, err
		}
		if agent == nil {
			break
		}

		margin := agent.RebatePercentage.Sub(distributed)
		if margin.IsPositive() {
			amount := stake.Mul(margin).Round(2)
			if amount.IsPositive() {
				if err := e.creditAgent(ctx, tx, period, agent, owner, stake, margin, amount); err != nil {
					return nil, err
				}
				credits = append(credits, rebateCredit{
					AgentUsername:  agent.Username,
					MemberUsername: owner,
					Rate:           margin,
					Amount:         amount,
				})
			}
			distributed = agent.RebatePercentage
		}

		if agent.ParentID == nil {
			break
		}
		agentID = *agent.ParentID
	}
	return credits, nil
}

func (e *Engine) creditAgent(ctx context.Context, tx repository.Repository, period int64, agent *models.Agent, member string, stake, rate, amount decimal.Decimal) error {
	before := agent.Balance
	after := before.Add(amount)
	if err := tx.UpdateAgentBalance(ctx, agent.ID, after); err != nil {
		return err
	}
	agent.Balance = after
	return tx.InsertTransactionRecord(ctx, &models.TransactionRecord{
		Ref:             uuid.NewString(),
		UserType:        models.UserTypeAgent,
		UserID:          agent.ID,
		TransactionType: models.TxTypeRebate,
		Amount:          amount,
		BalanceBefore:   before,
		BalanceAfter:    after,
		Period:          period,
		MemberUsername:  member,
		StakeAmount:     stake,
		RebateRate:      rate,
		Description:     fmt.Sprintf("rebate on %s stake %s", member, stake.StringFixed(2)),
	})
}
