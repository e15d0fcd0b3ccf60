// Package odds produces the locked-in payout multipliers for each wager
// family. Two market types exist: A keeps a 1.1% house margin, D keeps
// 4.1%. Every multiplier is the fair price scaled by (1 - margin) and the
// margin equals the market's maximum rebate rate, so the pool paid back to
// the agent line is exactly what the odds already withheld.
package odds

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"racebet/internal/models"
)

const (
	MarketA = "A"
	MarketD = "D"
)

var marketMargins = map[string]decimal.Decimal{
	MarketA: decimal.NewFromFloat(0.011),
	MarketD: decimal.NewFromFloat(0.041),
}

// sumValueBaseOdds is the fair price table for the exact sum of the first
// two positions (3..19).
var sumValueBaseOdds = map[int]decimal.Decimal{
	3: decimal.NewFromFloat(45.0), 4: decimal.NewFromFloat(23.0),
	5: decimal.NewFromFloat(15.0), 6: decimal.NewFromFloat(11.5),
	7: decimal.NewFromFloat(9.0), 8: decimal.NewFromFloat(7.5),
	9: decimal.NewFromFloat(6.5), 10: decimal.NewFromFloat(5.7),
	11: decimal.NewFromFloat(5.7), 12: decimal.NewFromFloat(6.5),
	13: decimal.NewFromFloat(7.5), 14: decimal.NewFromFloat(9.0),
	15: decimal.NewFromFloat(11.5), 16: decimal.NewFromFloat(15.0),
	17: decimal.NewFromFloat(23.0), 18: decimal.NewFromFloat(45.0),
	19: decimal.NewFromFloat(90.0),
}

// MaxRebateRate returns the rebate pool fraction for a market type.
func MaxRebateRate(marketType string) decimal.Decimal {
	if m, ok := marketMargins[marketType]; ok {
		return m
	}
	return marketMargins[MarketD]
}

// For returns the multiplier for one wager, or an error when the
// family/selector combination is not a recognized play.
func For(marketType, family, selector string, position *int) (decimal.Decimal, error) {
	margin, ok := marketMargins[marketType]
	if !ok {
		margin = marketMargins[MarketD]
	}
	keep := decimal.NewFromInt(1).Sub(margin)

	switch family {
	case models.FamilyNumber:
		if position == nil || *position < 1 || *position > 10 {
			return decimal.Zero, fmt.Errorf("number wager needs position 1-10")
		}
		if n, err := strconv.Atoi(selector); err != nil || n < 1 || n > 10 {
			return decimal.Zero, fmt.Errorf("number selector %q out of range", selector)
		}
		return decimal.NewFromInt(10).Mul(keep).Round(3), nil

	case models.FamilySumValue:
		if twoSided(selector) {
			return decimal.NewFromInt(2).Mul(keep).Round(3), nil
		}
		n, err := strconv.Atoi(selector)
		if err != nil {
			return decimal.Zero, fmt.Errorf("sum selector %q not recognized", selector)
		}
		base, ok := sumValueBaseOdds[n]
		if !ok {
			return decimal.Zero, fmt.Errorf("sum value %d out of range 3-19", n)
		}
		return base.Mul(keep).Round(3), nil

	case models.FamilyDragonTiger:
		if _, _, _, err := ParseDragonTiger(selector); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(2).Mul(keep).Round(3), nil
	}

	if _, ok := models.PositionFamilies[family]; ok {
		if twoSided(selector) {
			return decimal.NewFromInt(2).Mul(keep).Round(3), nil
		}
		if n, err := strconv.Atoi(selector); err == nil && n >= 1 && n <= 10 {
			return decimal.NewFromInt(10).Mul(keep).Round(3), nil
		}
		return decimal.Zero, fmt.Errorf("selector %q not valid for %s", selector, family)
	}

	return decimal.Zero, fmt.Errorf("unknown wager family %q", family)
}

// ParseDragonTiger decodes a dragon/tiger selector. Bare "dragon"/"tiger"
// compares champion vs runner-up; "dragon_4_7" compares position 4 vs 7.
func ParseDragonTiger(selector string) (dragon bool, pos1, pos2 int, err error) {
	switch selector {
	case "dragon":
		return true, 1, 2, nil
	case "tiger":
		return false, 1, 2, nil
	}
	var kind string
	if n, _ := fmt.Sscanf(selector, "dragon_%d_%d", &pos1, &pos2); n == 2 {
		kind = "dragon"
	} else if n, _ := fmt.Sscanf(selector, "tiger_%d_%d", &pos1, &pos2); n == 2 {
		kind = "tiger"
	} else {
		return false, 0, 0, fmt.Errorf("dragon/tiger selector %q not recognized", selector)
	}
	if pos1 < 1 || pos1 > 10 || pos2 < 1 || pos2 > 10 || pos1 == pos2 {
		return false, 0, 0, fmt.Errorf("dragon/tiger positions %d,%d invalid", pos1, pos2)
	}
	return kind == "dragon", pos1, pos2, nil
}

func twoSided(selector string) bool {
	switch selector {
	case models.SelectorBig, models.SelectorSmall, models.SelectorOdd, models.SelectorEven:
		return true
	}
	return false
}
