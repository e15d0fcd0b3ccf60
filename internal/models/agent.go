package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Agent is one node of the rebate tree. ParentID is nil only for the root
// (house) account. RebatePercentage is a fraction of stake (0.041 = 4.1%);
// a child's percentage never exceeds MaxRebatePercentage, which the
// administrative surface bounds by the parent's retained rate.
type Agent struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement"`
	Username string  `gorm:"type:varchar(50);uniqueIndex;not null"`
	ParentID *uint64 `gorm:"index"`

	MarketType          string          `gorm:"type:varchar(1);not null;default:'D'"`
	RebatePercentage    decimal.Decimal `gorm:"type:numeric(6,4);not null;default:0"`
	MaxRebatePercentage decimal.Decimal `gorm:"type:numeric(6,4);not null;default:0"`
	Balance             decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Agent) TableName() string {
	return "agents"
}
