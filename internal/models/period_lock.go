package models

import "time"

// PeriodLock exists only while a settlement attempt is in flight. A crashed
// holder self-heals once ExpiresAt passes.
type PeriodLock struct {
	Period     int64     `gorm:"primaryKey"`
	Holder     string    `gorm:"type:varchar(40);not null"`
	AcquiredAt time.Time `gorm:"type:timestamptz;not null"`
	ExpiresAt  time.Time `gorm:"type:timestamptz;not null"`
}

func (PeriodLock) TableName() string {
	return "period_locks"
}
