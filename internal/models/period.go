package models

import "time"

// Period states. A period moves betting -> drawing -> settled.
const (
	PeriodStateBetting = "betting"
	PeriodStateDrawing = "drawing"
	PeriodStateSettled = "settled"
)

type Period struct {
	ID    int64  `gorm:"primaryKey"`
	State string `gorm:"type:varchar(20);not null;default:'betting';index"`

	BettingClosesAt time.Time `gorm:"type:timestamptz;not null"`
	DrawAt          time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Period) TableName() string {
	return "periods"
}
