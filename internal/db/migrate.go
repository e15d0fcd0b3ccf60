package db

import (
	"racebet/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Agent{},
		&models.Member{},
		&models.Period{},
		&models.PeriodLock{},
		&models.Wager{},
		&models.Result{},
		&models.SettlementLog{},
		&models.FailedSettlement{},
		&models.TransactionRecord{},
	)
}
