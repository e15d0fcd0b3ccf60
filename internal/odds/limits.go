package odds

import (
	"fmt"

	"github.com/shopspring/decimal"

	"racebet/internal/models"
)

// Limit bounds a single wager and the per-period total for one play.
type Limit struct {
	MinBet      decimal.Decimal
	MaxBet      decimal.Decimal
	PeriodLimit decimal.Decimal
}

var (
	numberLimit = Limit{
		MinBet:      decimal.NewFromInt(1),
		MaxBet:      decimal.NewFromInt(2500),
		PeriodLimit: decimal.NewFromInt(5000),
	}
	twoSideLimit = Limit{
		MinBet:      decimal.NewFromInt(1),
		MaxBet:      decimal.NewFromInt(5000),
		PeriodLimit: decimal.NewFromInt(5000),
	}
	sumValueLimit = Limit{
		MinBet:      decimal.NewFromInt(1),
		MaxBet:      decimal.NewFromInt(1000),
		PeriodLimit: decimal.NewFromInt(2000),
	}
)

// LimitFor returns the stake bounds for a family/selector pair.
func LimitFor(family, selector string) Limit {
	switch family {
	case models.FamilyNumber:
		return numberLimit
	case models.FamilySumValue:
		if twoSided(selector) {
			return twoSideLimit
		}
		return sumValueLimit
	case models.FamilyDragonTiger:
		return twoSideLimit
	}
	if _, ok := models.PositionFamilies[family]; ok {
		if twoSided(selector) {
			return twoSideLimit
		}
		return numberLimit
	}
	return numberLimit
}

// CheckStake validates one stake against the single-bet bounds and the
// amount already staked on the same play this period.
func CheckStake(family, selector string, stake, alreadyStaked decimal.Decimal) error {
	lim := LimitFor(family, selector)
	if stake.LessThan(lim.MinBet) {
		return fmt.Errorf("stake %s below minimum %s", stake, lim.MinBet)
	}
	if stake.GreaterThan(lim.MaxBet) {
		return fmt.Errorf("stake %s above maximum %s", stake, lim.MaxBet)
	}
	if alreadyStaked.Add(stake).GreaterThan(lim.PeriodLimit) {
		return fmt.Errorf("period limit %s exceeded", lim.PeriodLimit)
	}
	return nil
}
