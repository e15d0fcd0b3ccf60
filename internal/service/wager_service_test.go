package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"racebet/internal/models"
)

func newWagerService(repo *stubRepo) *WagerService {
	return &WagerService{
		Repo: repo,
		Now:  func() time.Time { return time.Date(2026, 7, 16, 11, 0, 0, 0, time.UTC) },
	}
}

func TestPlaceWager_LocksOddsAndDebits(t *testing.T) {
	repo := newStubRepo()
	seedPeriod(repo, testPeriod, models.PeriodStateBetting)
	seedMember(repo, "alice", 1, 1000)

	svc := newWagerService(repo)
	pos := 1
	w, err := svc.PlaceWager(context.Background(), PlaceWagerRequest{
		Username: "alice",
		Period:   testPeriod,
		Family:   models.FamilyNumber,
		Selector: "7",
		Position: &pos,
		Stake:    decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("PlaceWager: %v", err)
	}
	// Market A number odds.
	if !w.Odds.Equal(decimal.NewFromFloat(9.89)) {
		t.Fatalf("locked odds=%s want 9.89", w.Odds)
	}
	if !repo.members["alice"].Balance.Equal(decimal.NewFromInt(990)) {
		t.Fatalf("balance=%s want 990", repo.members["alice"].Balance)
	}

	bets := repo.txnsOfType(models.TxTypeBet)
	if len(bets) != 1 {
		t.Fatalf("bet records=%d want 1", len(bets))
	}
	if !bets[0].Amount.Equal(decimal.NewFromInt(-10)) || bets[0].WagerID != w.ID {
		t.Fatalf("bet record %+v want -10 linked to wager %d", bets[0], w.ID)
	}
}

func TestPlaceWager_RejectsClosedWindow(t *testing.T) {
	repo := newStubRepo()
	seedPeriod(repo, testPeriod, models.PeriodStateBetting)
	seedMember(repo, "alice", 1, 1000)

	svc := newWagerService(repo)
	svc.Now = func() time.Time { return time.Date(2026, 7, 16, 11, 59, 45, 0, time.UTC) }
	_, err := svc.PlaceWager(context.Background(), PlaceWagerRequest{
		Username: "alice",
		Period:   testPeriod,
		Family:   models.FamilySumValue,
		Selector: models.SelectorBig,
		Stake:    decimal.NewFromInt(10),
	})
	if !errors.Is(err, ErrBettingClosed) {
		t.Fatalf("err=%v want ErrBettingClosed", err)
	}
}

func TestPlaceWager_RejectsDrawingPeriod(t *testing.T) {
	repo := newStubRepo()
	seedPeriod(repo, testPeriod, models.PeriodStateDrawing)
	seedMember(repo, "alice", 1, 1000)

	svc := newWagerService(repo)
	_, err := svc.PlaceWager(context.Background(), PlaceWagerRequest{
		Username: "alice",
		Period:   testPeriod,
		Family:   models.FamilySumValue,
		Selector: models.SelectorBig,
		Stake:    decimal.NewFromInt(10),
	})
	if !errors.Is(err, ErrBettingClosed) {
		t.Fatalf("err=%v want ErrBettingClosed", err)
	}
}

func TestPlaceWager_InsufficientBalance(t *testing.T) {
	repo := newStubRepo()
	seedPeriod(repo, testPeriod, models.PeriodStateBetting)
	seedMember(repo, "alice", 1, 5)

	svc := newWagerService(repo)
	_, err := svc.PlaceWager(context.Background(), PlaceWagerRequest{
		Username: "alice",
		Period:   testPeriod,
		Family:   models.FamilySumValue,
		Selector: models.SelectorBig,
		Stake:    decimal.NewFromInt(10),
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err=%v want ErrInsufficientBalance", err)
	}
	if !repo.members["alice"].Balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("balance moved on a rejected wager")
	}
}

func TestPlaceWager_UnknownMember(t *testing.T) {
	repo := newStubRepo()
	seedPeriod(repo, testPeriod, models.PeriodStateBetting)

	svc := newWagerService(repo)
	_, err := svc.PlaceWager(context.Background(), PlaceWagerRequest{
		Username: "ghost",
		Period:   testPeriod,
		Family:   models.FamilySumValue,
		Selector: models.SelectorBig,
		Stake:    decimal.NewFromInt(10),
	})
	if !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("err=%v want ErrUnknownMember", err)
	}
}

func TestPlaceWager_SingleBetLimit(t *testing.T) {
	repo := newStubRepo()
	seedPeriod(repo, testPeriod, models.PeriodStateBetting)
	seedMember(repo, "alice", 1, 10000)

	svc := newWagerService(repo)
	pos := 1
	_, err := svc.PlaceWager(context.Background(), PlaceWagerRequest{
		Username: "alice",
		Period:   testPeriod,
		Family:   models.FamilyNumber,
		Selector: "7",
		Position: &pos,
		Stake:    decimal.NewFromInt(3000),
	})
	if err == nil {
		t.Fatalf("expected single-bet limit rejection")
	}
}

func TestPlaceWager_PeriodLimitAccumulates(t *testing.T) {
	repo := newStubRepo()
	seedPeriod(repo, testPeriod, models.PeriodStateBetting)
	seedMember(repo, "alice", 1, 100000)
	pos := 1
	// Two maximal bets bring the play total to 5000, the period ceiling.
	addWager(repo, testPeriod, "alice", models.FamilyNumber, "7", &pos, 2500, 9.89)
	addWager(repo, testPeriod, "alice", models.FamilyNumber, "7", &pos, 2500, 9.89)

	svc := newWagerService(repo)
	_, err := svc.PlaceWager(context.Background(), PlaceWagerRequest{
		Username: "alice",
		Period:   testPeriod,
		Family:   models.FamilyNumber,
		Selector: "7",
		Position: &pos,
		Stake:    decimal.NewFromInt(1),
	})
	if err == nil {
		t.Fatalf("expected period limit rejection")
	}

	// A different selector on the same position is a different play.
	if _, err := svc.PlaceWager(context.Background(), PlaceWagerRequest{
		Username: "alice",
		Period:   testPeriod,
		Family:   models.FamilyNumber,
		Selector: "8",
		Position: &pos,
		Stake:    decimal.NewFromInt(1),
	}); err != nil {
		t.Fatalf("distinct play rejected: %v", err)
	}
}
