package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Member struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Username string `gorm:"type:varchar(50);uniqueIndex;not null"`
	AgentID  uint64 `gorm:"not null;index"`

	MarketType string          `gorm:"type:varchar(1);not null;default:'D'"`
	Balance    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Member) TableName() string {
	return "members"
}
