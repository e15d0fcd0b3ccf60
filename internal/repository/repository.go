package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"racebet/internal/models"
)

// ErrLockHeld reports that another holder owns the period lock row.
var ErrLockHeld = errors.New("period lock held")

// Repository is the persistence surface the engine works against. InTx runs
// fn against a transaction-scoped Repository; callers never see the driver.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// Wagers
	InsertWager(ctx context.Context, item *models.Wager) error
	ListWagersByPeriod(ctx context.Context, period int64) ([]models.Wager, error)
	ListUnsettledWagersForUpdate(ctx context.Context, period int64) ([]models.Wager, error)
	ListWagersByOwner(ctx context.Context, owner string, period int64) ([]models.Wager, error)
	SumStakeByPlay(ctx context.Context, period int64, owner, family, selector string, position *int) (decimal.Decimal, error)
	// MarkWagerSettled flips a wager to settled and records the outcome.
	// The update is conditional on settled=false; it reports whether this
	// call was the one that flipped it.
	MarkWagerSettled(ctx context.Context, id uint64, won bool, payout decimal.Decimal, at time.Time) (bool, error)

	// Members
	GetMemberByUsername(ctx context.Context, username string) (*models.Member, error)
	GetMemberForUpdate(ctx context.Context, username string) (*models.Member, error)
	UpdateMemberBalance(ctx context.Context, username string, balance decimal.Decimal) error
	ListMembersByAgentIDs(ctx context.Context, agentIDs []uint64) ([]models.Member, error)

	// Agents
	GetAgentByID(ctx context.Context, id uint64) (*models.Agent, error)
	GetAgentByUsername(ctx context.Context, username string) (*models.Agent, error)
	GetAgentForUpdate(ctx context.Context, id uint64) (*models.Agent, error)
	UpdateAgentBalance(ctx context.Context, id uint64, balance decimal.Decimal) error
	ListAgentsByParentID(ctx context.Context, parentID uint64) ([]models.Agent, error)

	// Results
	UpsertResult(ctx context.Context, item *models.Result) error
	GetResultByPeriod(ctx context.Context, period int64) (*models.Result, error)
	ListRecentResults(ctx context.Context, limit int) ([]models.Result, error)

	// Periods
	UpsertPeriod(ctx context.Context, item *models.Period) error
	GetPeriod(ctx context.Context, id int64) (*models.Period, error)
	GetLatestPeriod(ctx context.Context) (*models.Period, error)
	UpdatePeriodState(ctx context.Context, id int64, state string) error
	ListPeriodsByState(ctx context.Context, state string, limit int) ([]models.Period, error)

	// Period locks
	InsertPeriodLock(ctx context.Context, item *models.PeriodLock) error
	GetPeriodLock(ctx context.Context, period int64) (*models.PeriodLock, error)
	DeletePeriodLock(ctx context.Context, period int64, holder string) error
	DeleteExpiredPeriodLock(ctx context.Context, period int64, now time.Time) (bool, error)

	// Settlement bookkeeping
	InsertSettlementLog(ctx context.Context, item *models.SettlementLog) error
	GetSettlementLogByPeriod(ctx context.Context, period int64) (*models.SettlementLog, error)
	// UpsertFailedSettlement records one failure attempt per period; a repeat
	// failure bumps retry_count on the existing row instead of conflicting.
	UpsertFailedSettlement(ctx context.Context, item *models.FailedSettlement) error
	ListFailedSettlements(ctx context.Context, limit int) ([]models.FailedSettlement, error)

	// Ledger
	InsertTransactionRecord(ctx context.Context, item *models.TransactionRecord) error
	ListTransactionRecords(ctx context.Context, params ListTransactionsParams) ([]models.TransactionRecord, error)
}

type ListTransactionsParams struct {
	Limit    int
	Offset   int
	Username *string
	UserType *string
	TxType   *string
	Period   *int64
	Since    *time.Time
}
