// Package gormrepository is the PostgreSQL-backed implementation of the
// repository surface.
package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"racebet/internal/models"
	"racebet/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InTx wraps fn in a database transaction. fn receives a Store bound to the
// transaction connection so every call inside shares its visibility and locks.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// --- Wagers -----------------------------------------------------------------

func (s *Store) InsertWager(ctx context.Context, item *models.Wager) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListWagersByPeriod(ctx context.Context, period int64) ([]models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Wager
	err := s.db.WithContext(ctx).
		Where("period = ?", period).
		Order("id asc").
		Find(&items).Error
	return items, err
}

func (s *Store) ListUnsettledWagersForUpdate(ctx context.Context, period int64) ([]models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Wager
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("period = ?", period).
		Where("settled = ?", false).
		Order("id asc").
		Find(&items).Error
	return items, err
}

func (s *Store) ListWagersByOwner(ctx context.Context, owner string, period int64) ([]models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Wager
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Where("period = ?", period).
		Order("id asc").
		Find(&items).Error
	return items, err
}

func (s *Store) SumStakeByPlay(ctx context.Context, period int64, owner, family, selector string, position *int) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("period = ?", period).
		Where("owner = ?", owner).
		Where("family = ?", family).
		Where("selector = ?", selector)
	if position != nil {
		query = query.Where("position = ?", *position)
	}
	var total decimal.NullDecimal
	if err := query.Select("SUM(stake)").Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (s *Store) MarkWagerSettled(ctx context.Context, id uint64, won bool, payout decimal.Decimal, at time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ?", id).
		Where("settled = ?", false).
		Updates(map[string]any{
			"settled":    true,
			"won":        won,
			"payout":     payout,
			"settled_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

// --- Members ----------------------------------------------------------------

func (s *Store) GetMemberByUsername(ctx context.Context, username string) (*models.Member, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Member
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetMemberForUpdate(ctx context.Context, username string) (*models.Member, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Member
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("username = ?", username).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateMemberBalance(ctx context.Context, username string, balance decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("username = ?", username).
		Update("balance", balance).Error
}

func (s *Store) ListMembersByAgentIDs(ctx context.Context, agentIDs []uint64) ([]models.Member, error) {
	if s == nil || s.db == nil || len(agentIDs) == 0 {
		return nil, nil
	}
	var items []models.Member
	err := s.db.WithContext(ctx).
		Where("agent_id IN ?", agentIDs).
		Find(&items).Error
	return items, err
}

// --- Agents -----------------------------------------------------------------

func (s *Store) GetAgentByID(ctx context.Context, id uint64) (*models.Agent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Agent
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetAgentByUsername(ctx context.Context, username string) (*models.Agent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Agent
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetAgentForUpdate(ctx context.Context, id uint64) (*models.Agent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Agent
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateAgentBalance(ctx context.Context, id uint64, balance decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", id).
		Update("balance", balance).Error
}

func (s *Store) ListAgentsByParentID(ctx context.Context, parentID uint64) ([]models.Agent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Agent
	err := s.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Find(&items).Error
	return items, err
}

// --- Results ----------------------------------------------------------------

func (s *Store) UpsertResult(ctx context.Context, item *models.Result) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"position1", "position2", "position3", "position4", "position5",
			"position6", "position7", "position8", "position9", "position10",
			"strategy",
		}),
	}).Create(item).Error
}

func (s *Store) GetResultByPeriod(ctx context.Context, period int64) (*models.Result, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Result
	err := s.db.WithContext(ctx).Where("period = ?", period).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListRecentResults(ctx context.Context, limit int) ([]models.Result, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 20)
	var items []models.Result
	err := s.db.WithContext(ctx).
		Order("period desc").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// --- Periods ----------------------------------------------------------------

func (s *Store) UpsertPeriod(ctx context.Context, item *models.Period) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "betting_closes_at", "draw_at"}),
	}).Create(item).Error
}

func (s *Store) GetPeriod(ctx context.Context, id int64) (*models.Period, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Period
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetLatestPeriod(ctx context.Context) (*models.Period, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Period
	err := s.db.WithContext(ctx).Order("id desc").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdatePeriodState(ctx context.Context, id int64, state string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Period{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (s *Store) ListPeriodsByState(ctx context.Context, state string, limit int) ([]models.Period, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.Period
	err := s.db.WithContext(ctx).
		Where("state = ?", state).
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// --- Period locks -----------------------------------------------------------

func (s *Store) InsertPeriodLock(ctx context.Context, item *models.PeriodLock) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	err := s.db.WithContext(ctx).Create(item).Error
	if err != nil && isDuplicateKey(err) {
		return repository.ErrLockHeld
	}
	return err
}

func (s *Store) GetPeriodLock(ctx context.Context, period int64) (*models.PeriodLock, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PeriodLock
	err := s.db.WithContext(ctx).Where("period = ?", period).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeletePeriodLock(ctx context.Context, period int64, holder string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("period = ?", period).
		Where("holder = ?", holder).
		Delete(&models.PeriodLock{}).Error
}

func (s *Store) DeleteExpiredPeriodLock(ctx context.Context, period int64, now time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Where("period = ?", period).
		Where("expires_at < ?", now).
		Delete(&models.PeriodLock{})
	return res.RowsAffected == 1, res.Error
}

// --- Settlement bookkeeping -------------------------------------------------

func (s *Store) InsertSettlementLog(ctx context.Context, item *models.SettlementLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSettlementLogByPeriod(ctx context.Context, period int64) (*models.SettlementLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SettlementLog
	err := s.db.WithContext(ctx).Where("period = ?", period).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertFailedSettlement(ctx context.Context, item *models.FailedSettlement) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period"}},
		DoUpdates: clause.Assignments(map[string]any{
			"error":       item.Error,
			"retry_count": gorm.Expr("failed_settlements.retry_count + 1"),
			"updated_at":  time.Now().UTC(),
		}),
	}).Create(item).Error
}

func (s *Store) ListFailedSettlements(ctx context.Context, limit int) ([]models.FailedSettlement, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.FailedSettlement
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// --- Ledger -----------------------------------------------------------------

func (s *Store) InsertTransactionRecord(ctx context.Context, item *models.TransactionRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTransactionRecords(ctx context.Context, params repository.ListTransactionsParams) ([]models.TransactionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TransactionRecord{})
	if params.Username != nil && strings.TrimSpace(*params.Username) != "" {
		query = query.Where("member_username = ?", strings.TrimSpace(*params.Username))
	}
	if params.UserType != nil && strings.TrimSpace(*params.UserType) != "" {
		query = query.Where("user_type = ?", strings.TrimSpace(*params.UserType))
	}
	if params.TxType != nil && strings.TrimSpace(*params.TxType) != "" {
		query = query.Where("transaction_type = ?", strings.TrimSpace(*params.TxType))
	}
	if params.Period != nil {
		query = query.Where("period = ?", *params.Period)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.TransactionRecord
	err := query.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error
	return items, err
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The postgres driver only maps to ErrDuplicatedKey when translation is
	// enabled; fall back to the SQLSTATE in the message.
	return err != nil && strings.Contains(err.Error(), "23505")
}
