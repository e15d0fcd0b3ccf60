package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types written by the engine. Rows are append-only; nothing in
// the core mutates or deletes them.
const (
	TxTypeBet    = "bet"
	TxTypeWin    = "win"
	TxTypeRebate = "rebate"
)

const (
	UserTypeMember = "member"
	UserTypeAgent  = "agent"
)

type TransactionRecord struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Ref      string `gorm:"type:varchar(40);uniqueIndex;not null"`
	UserType string `gorm:"type:varchar(10);not null"`
	UserID   uint64 `gorm:"not null;index"`

	TransactionType string          `gorm:"column:transaction_type;type:varchar(20);not null;index"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceBefore   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceAfter    decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	Period         int64           `gorm:"not null;index"`
	MemberUsername string          `gorm:"type:varchar(50)"`
	WagerID        uint64          `gorm:"index"`
	StakeAmount    decimal.Decimal `gorm:"type:numeric(20,2)"`
	RebateRate     decimal.Decimal `gorm:"type:numeric(6,4)"`
	Description    string          `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (TransactionRecord) TableName() string {
	return "transaction_records"
}
