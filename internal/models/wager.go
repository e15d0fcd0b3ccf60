package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wager families. "number" carries an explicit position; the ten named
// position families take a numeric selector or big/small/odd/even.
const (
	FamilyNumber      = "number"
	FamilySumValue    = "sumValue"
	FamilyDragonTiger = "dragonTiger"
)

// PositionFamilies maps the named position families to their 1-based position.
var PositionFamilies = map[string]int{
	"champion": 1, "runnerup": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// Two-sided selectors shared by the position and sum families.
const (
	SelectorBig   = "big"
	SelectorSmall = "small"
	SelectorOdd   = "odd"
	SelectorEven  = "even"
)

type Wager struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Period int64  `gorm:"not null;index:idx_wagers_period_settled"`
	Owner  string `gorm:"type:varchar(50);not null;index"`

	Family   string `gorm:"type:varchar(20);not null"`
	Selector string `gorm:"type:varchar(20);not null"`
	Position *int   `gorm:"type:smallint"`

	Stake decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Odds  decimal.Decimal `gorm:"type:numeric(10,3);not null"`

	Settled   bool            `gorm:"not null;default:false;index:idx_wagers_period_settled"`
	Won       bool            `gorm:"not null;default:false"`
	Payout    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	SettledAt *time.Time      `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Wager) TableName() string {
	return "wagers"
}
