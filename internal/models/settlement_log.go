package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SettlementLog struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	Period       int64           `gorm:"uniqueIndex;not null"`
	SettledCount int             `gorm:"not null"`
	TotalPayout  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Details      datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt    time.Time       `gorm:"type:timestamptz;autoCreateTime"`
}

func (SettlementLog) TableName() string {
	return "settlement_logs"
}

type FailedSettlement struct {
	Period     int64     `gorm:"primaryKey"`
	Error      string    `gorm:"type:text;not null"`
	RetryCount int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (FailedSettlement) TableName() string {
	return "failed_settlements"
}
