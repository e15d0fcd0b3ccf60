// Package analysis aggregates a period's wagers into the tallies the
// result generator works from. Everything here is pure computation over
// rows the caller already fetched.
package analysis

import (
	"strconv"

	"github.com/shopspring/decimal"

	"racebet/internal/models"
)

// BetAnalysis summarizes one period's outstanding wagers.
type BetAnalysis struct {
	TotalStake decimal.Decimal
	WagerCount int

	// NumberStakes[pos][sel] is the total staked on selector sel landing at
	// position pos, folding the number family and the named position
	// families' numeric selectors together. Indices are 1-based.
	NumberStakes map[int]map[int]decimal.Decimal

	// NumberOdds[pos][sel] is the largest locked-in multiplier seen for
	// that play, used for the worst-case exposure estimate.
	NumberOdds map[int]map[int]decimal.Decimal

	// ByOwner groups the period's wagers per owner username.
	ByOwner map[string][]models.Wager

	// RiskRatio is worst-case payout exposure over total stake: the sum
	// across positions of the most-staked selector's payout if it wins,
	// divided by the total staked this period. Zero when nothing is staked.
	RiskRatio float64
}

// Analyze computes the per-period tallies. Zero wagers yields a zero-value
// analysis with RiskRatio 0; the caller short-circuits to uniform
// randomness in that case.
func Analyze(wagers []models.Wager) *BetAnalysis {
	a := &BetAnalysis{
		TotalStake:   decimal.Zero,
		NumberStakes: make(map[int]map[int]decimal.Decimal),
		NumberOdds:   make(map[int]map[int]decimal.Decimal),
		ByOwner:      make(map[string][]models.Wager),
	}

	for _, w := range wagers {
		a.TotalStake = a.TotalStake.Add(w.Stake)
		a.WagerCount++
		a.ByOwner[w.Owner] = append(a.ByOwner[w.Owner], w)

		pos, sel, ok := numberPlay(w)
		if !ok {
			continue
		}
		if a.NumberStakes[pos] == nil {
			a.NumberStakes[pos] = make(map[int]decimal.Decimal)
			a.NumberOdds[pos] = make(map[int]decimal.Decimal)
		}
		a.NumberStakes[pos][sel] = a.NumberStakes[pos][sel].Add(w.Stake)
		if w.Odds.GreaterThan(a.NumberOdds[pos][sel]) {
			a.NumberOdds[pos][sel] = w.Odds
		}
	}

	if a.TotalStake.IsPositive() {
		exposure := decimal.Zero
		for pos, stakes := range a.NumberStakes {
			sel, stake := hottestSelector(stakes)
			if sel == 0 {
				continue
			}
			exposure = exposure.Add(stake.Mul(a.NumberOdds[pos][sel]))
		}
		a.RiskRatio, _ = exposure.Div(a.TotalStake).Float64()
	}

	return a
}

// StakeAt returns the amount staked on selector sel at position pos.
func (a *BetAnalysis) StakeAt(pos, sel int) decimal.Decimal {
	if stakes, ok := a.NumberStakes[pos]; ok {
		return stakes[sel]
	}
	return decimal.Zero
}

// LeastStakedSelector picks the cheapest selector at pos among the still
// available values. Ties keep the first candidate in the order given.
func (a *BetAnalysis) LeastStakedSelector(pos int, available []int) int {
	best := 0
	bestStake := decimal.Zero
	for _, v := range available {
		s := a.StakeAt(pos, v)
		if best == 0 || s.LessThan(bestStake) {
			best = v
			bestStake = s
		}
	}
	return best
}

// AveragePositionStake is the mean staked amount per selector at pos,
// counting all ten selectors including unstaked ones.
func (a *BetAnalysis) AveragePositionStake(pos int) decimal.Decimal {
	total := decimal.Zero
	for _, s := range a.NumberStakes[pos] {
		total = total.Add(s)
	}
	return total.Div(decimal.NewFromInt(10))
}

func hottestSelector(stakes map[int]decimal.Decimal) (int, decimal.Decimal) {
	best := 0
	bestStake := decimal.Zero
	for sel, s := range stakes {
		if best == 0 || s.GreaterThan(bestStake) || (s.Equal(bestStake) && sel < best) {
			best = sel
			bestStake = s
		}
	}
	return best, bestStake
}

// numberPlay reduces a wager to a (position, selector) number play when it
// is one: the number family, or a named position family with a numeric
// selector. Two-sided, sum and dragon/tiger wagers return ok=false.
func numberPlay(w models.Wager) (pos, sel int, ok bool) {
	switch w.Family {
	case models.FamilyNumber:
		if w.Position == nil {
			return 0, 0, false
		}
		pos = *w.Position
	default:
		p, isPos := models.PositionFamilies[w.Family]
		if !isPos {
			return 0, 0, false
		}
		pos = p
	}
	sel, err := strconv.Atoi(w.Selector)
	if err != nil || pos < 1 || pos > 10 || sel < 1 || sel > 10 {
		return 0, 0, false
	}
	return pos, sel, true
}
