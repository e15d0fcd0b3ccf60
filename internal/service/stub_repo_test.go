package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"racebet/internal/models"
	"racebet/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// InTx serializes whole transactions behind txMu the way the database does;
// individual calls guard the maps with mu.
type stubRepo struct {
	mu   sync.Mutex
	txMu sync.Mutex

	wagers  map[uint64]*models.Wager
	members map[string]*models.Member
	agents  map[uint64]*models.Agent
	results map[int64]*models.Result
	periods map[int64]*models.Period
	locks   map[int64]*models.PeriodLock
	logs    map[int64]*models.SettlementLog
	failed  []models.FailedSettlement
	txns    []models.TransactionRecord

	nextWagerID uint64

	// insertLogErr injects a failure at the end of the transaction.
	insertLogErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		wagers:  map[uint64]*models.Wager{},
		members: map[string]*models.Member{},
		agents:  map[uint64]*models.Agent{},
		results: map[int64]*models.Result{},
		periods: map[int64]*models.Period{},
		locks:   map[int64]*models.PeriodLock{},
		logs:    map[int64]*models.SettlementLog{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *stubRepo) InsertWager(ctx context.Context, item *models.Wager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWagerID++
	item.ID = s.nextWagerID
	cp := *item
	s.wagers[item.ID] = &cp
	return nil
}

func (s *stubRepo) ListWagersByPeriod(ctx context.Context, period int64) ([]models.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Wager
	for id := uint64(1); id <= s.nextWagerID; id++ {
		if w, ok := s.wagers[id]; ok && w.Period == period {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *stubRepo) ListUnsettledWagersForUpdate(ctx context.Context, period int64) ([]models.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Wager
	for id := uint64(1); id <= s.nextWagerID; id++ {
		if w, ok := s.wagers[id]; ok && w.Period == period && !w.Settled {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *stubRepo) ListWagersByOwner(ctx context.Context, owner string, period int64) ([]models.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Wager
	for id := uint64(1); id <= s.nextWagerID; id++ {
		if w, ok := s.wagers[id]; ok && w.Period == period && w.Owner == owner {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *stubRepo) SumStakeByPlay(ctx context.Context, period int64, owner, family, selector string, position *int) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, w := range s.wagers {
		if w.Period != period || w.Owner != owner || w.Family != family || w.Selector != selector {
			continue
		}
		if position != nil && (w.Position == nil || *w.Position != *position) {
			continue
		}
		total = total.Add(w.Stake)
	}
	return total, nil
}

func (s *stubRepo) MarkWagerSettled(ctx context.Context, id uint64, won bool, payout decimal.Decimal, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wagers[id]
	if !ok || w.Settled {
		return false, nil
	}
	w.Settled = true
	w.Won = won
	w.Payout = payout
	t := at
	w.SettledAt = &t
	return true, nil
}

func (s *stubRepo) GetMemberByUsername(ctx context.Context, username string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.members[username]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) GetMemberForUpdate(ctx context.Context, username string) (*models.Member, error) {
	return s.GetMemberByUsername(ctx, username)
}

func (s *stubRepo) UpdateMemberBalance(ctx context.Context, username string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.members[username]; ok {
		m.Balance = balance
	}
	return nil
}

func (s *stubRepo) ListMembersByAgentIDs(ctx context.Context, agentIDs []uint64) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Member
	for _, m := range s.members {
		for _, id := range agentIDs {
			if m.AgentID == id {
				out = append(out, *m)
				break
			}
		}
	}
	return out, nil
}

func (s *stubRepo) GetAgentByID(ctx context.Context, id uint64) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.agents[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) GetAgentByUsername(ctx context.Context, username string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.agents {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetAgentForUpdate(ctx context.Context, id uint64) (*models.Agent, error) {
	return s.GetAgentByID(ctx, id)
}

func (s *stubRepo) UpdateAgentBalance(ctx context.Context, id uint64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.agents[id]; ok {
		a.Balance = balance
	}
	return nil
}

func (s *stubRepo) ListAgentsByParentID(ctx context.Context, parentID uint64) ([]models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Agent
	for _, a := range s.agents {
		if a.ParentID != nil && *a.ParentID == parentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubRepo) UpsertResult(ctx context.Context, item *models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.results[item.Period] = &cp
	return nil
}

func (s *stubRepo) GetResultByPeriod(ctx context.Context, period int64) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[period]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListRecentResults(ctx context.Context, limit int) ([]models.Result, error) {
	return nil, nil
}

func (s *stubRepo) UpsertPeriod(ctx context.Context, item *models.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.periods[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetPeriod(ctx context.Context, id int64) (*models.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.periods[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) GetLatestPeriod(ctx context.Context) (*models.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Period
	for _, p := range s.periods {
		if latest == nil || p.ID > latest.ID {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *stubRepo) UpdatePeriodState(ctx context.Context, id int64, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.periods[id]; ok {
		p.State = state
	}
	return nil
}

func (s *stubRepo) ListPeriodsByState(ctx context.Context, state string, limit int) ([]models.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Period
	for _, p := range s.periods {
		if p.State == state {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertPeriodLock(ctx context.Context, item *models.PeriodLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[item.Period]; held {
		return repository.ErrLockHeld
	}
	cp := *item
	s.locks[item.Period] = &cp
	return nil
}

func (s *stubRepo) GetPeriodLock(ctx context.Context, period int64) (*models.PeriodLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[period]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) DeletePeriodLock(ctx context.Context, period int64, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[period]; ok && l.Holder == holder {
		delete(s.locks, period)
	}
	return nil
}

func (s *stubRepo) DeleteExpiredPeriodLock(ctx context.Context, period int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[period]; ok && l.ExpiresAt.Before(now) {
		delete(s.locks, period)
		return true, nil
	}
	return false, nil
}

func (s *stubRepo) InsertSettlementLog(ctx context.Context, item *models.SettlementLog) error {
	if s.insertLogErr != nil {
		return s.insertLogErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.logs[item.Period] = &cp
	return nil
}

func (s *stubRepo) GetSettlementLogByPeriod(ctx context.Context, period int64) (*models.SettlementLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.logs[period]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) UpsertFailedSettlement(ctx context.Context, item *models.FailedSettlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.failed {
		if s.failed[i].Period == item.Period {
			s.failed[i].Error = item.Error
			s.failed[i].RetryCount++
			return nil
		}
	}
	s.failed = append(s.failed, *item)
	return nil
}

func (s *stubRepo) ListFailedSettlements(ctx context.Context, limit int) ([]models.FailedSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FailedSettlement(nil), s.failed...), nil
}

func (s *stubRepo) InsertTransactionRecord(ctx context.Context, item *models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, *item)
	return nil
}

func (s *stubRepo) ListTransactionRecords(ctx context.Context, params repository.ListTransactionsParams) ([]models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TransactionRecord
	for _, t := range s.txns {
		if params.Username != nil && t.MemberUsername != *params.Username {
			continue
		}
		if params.UserType != nil && t.UserType != *params.UserType {
			continue
		}
		if params.TxType != nil && t.TransactionType != *params.TxType {
			continue
		}
		if params.Period != nil && t.Period != *params.Period {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *stubRepo) txnsOfType(txType string) []models.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TransactionRecord
	for _, t := range s.txns {
		if t.TransactionType == txType {
			out = append(out, t)
		}
	}
	return out
}
