package settlement

import (
	"strconv"

	"github.com/shopspring/decimal"

	"racebet/internal/models"
	"racebet/internal/odds"
)

// Evaluate reports whether a wager wins against a result permutation.
// positions is the ordered tuple, 0-indexed; values are 1..10. Unknown
// families and malformed selectors evaluate to a loss.
func Evaluate(w models.Wager, positions [10]int) bool {
	switch w.Family {
	case models.FamilyNumber:
		if w.Position == nil || *w.Position < 1 || *w.Position > 10 {
			return false
		}
		sel, err := strconv.Atoi(w.Selector)
		if err != nil {
			return false
		}
		return positions[*w.Position-1] == sel

	case models.FamilySumValue:
		sum := positions[0] + positions[1]
		switch w.Selector {
		case models.SelectorBig:
			return sum >= 12
		case models.SelectorSmall:
			return sum <= 11
		case models.SelectorOdd:
			return sum%2 == 1
		case models.SelectorEven:
			return sum%2 == 0
		}
		sel, err := strconv.Atoi(w.Selector)
		if err != nil {
			return false
		}
		return sum == sel

	case models.FamilyDragonTiger:
		dragon, p1, p2, err := odds.ParseDragonTiger(w.Selector)
		if err != nil {
			return false
		}
		if dragon {
			return positions[p1-1] > positions[p2-1]
		}
		return positions[p1-1] < positions[p2-1]
	}

	pos, ok := models.PositionFamilies[w.Family]
	if !ok {
		return false
	}
	v := positions[pos-1]
	switch w.Selector {
	case models.SelectorBig:
		return v >= 6
	case models.SelectorSmall:
		return v <= 5
	case models.SelectorOdd:
		return v%2 == 1
	case models.SelectorEven:
		return v%2 == 0
	}
	sel, err := strconv.Atoi(w.Selector)
	if err != nil {
		return false
	}
	return v == sel
}

// Payout is stake times the locked-in multiplier for a win, zero otherwise,
// rounded to cents.
func Payout(w models.Wager, won bool) decimal.Decimal {
	if !won {
		return decimal.Zero
	}
	return w.Stake.Mul(w.Odds).Round(2)
}
