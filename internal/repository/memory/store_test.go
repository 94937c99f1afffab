package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

func seed(t *testing.T, s *Store, number string, balance string) models.Account {
	t.Helper()
	a, err := s.Repositories().Accounts.Create(context.Background(), models.Account{
		AccountNumber: number,
		UserID:        "user-1",
		Balance:       decimal.RequireFromString(balance),
		AccountType:   models.AccountSavings,
		Currency:      models.DefaultCurrency,
		Status:        models.AccountActive,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func pending(id, account string, typ models.TransactionType, amount string, at time.Time) models.Transaction {
	return models.Transaction{
		ID:            id,
		AccountNumber: account,
		UserID:        "user-1",
		Type:          typ,
		Amount:        decimal.RequireFromString(amount),
		Category:      "food",
		Timestamp:     at,
		Status:        models.TxnPending,
	}
}

func TestAccountsCreateDuplicate(t *testing.T) {
	s := NewStore()
	seed(t, s, "ACC1", "10")
	_, err := s.Repositories().Accounts.Create(context.Background(), models.Account{AccountNumber: "ACC1"})
	if !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestAccountsUpdateBalanceRejectsNegative(t *testing.T) {
	s := NewStore()
	seed(t, s, "ACC1", "10")
	accounts := s.Repositories().Accounts

	err := accounts.UpdateBalance(context.Background(), "ACC1", decimal.NewFromInt(-1), nil)
	if !errors.Is(err, repo.ErrNegativeBalance) {
		t.Fatalf("want ErrNegativeBalance, got %v", err)
	}
	a, _ := accounts.GetByNumber(context.Background(), "ACC1")
	if !a.Balance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance changed to %s", a.Balance)
	}

	if err := accounts.UpdateBalance(context.Background(), "NOPE", decimal.Zero, nil); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListActiveByUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seed(t, s, "B", "1")
	seed(t, s, "A", "2")
	_, _ = s.Repositories().Accounts.Create(ctx, models.Account{
		AccountNumber: "C", UserID: "user-1", Status: models.AccountFrozen,
	})

	got, err := s.Repositories().Accounts.ListActiveByUser(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].AccountNumber != "A" || got[1].AccountNumber != "B" {
		t.Fatalf("unexpected accounts: %+v", got)
	}
}

func TestTransactionTransitionsArePendingOnly(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seed(t, s, "ACC1", "0")
	txns := s.Repositories().Transactions

	if _, err := txns.Create(ctx, pending("t1", "ACC1", models.TxnCredit, "5", time.Now())); err != nil {
		t.Fatal(err)
	}
	if _, err := txns.Create(ctx, pending("t1", "ACC1", models.TxnCredit, "5", time.Now())); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if _, err := txns.Create(ctx, pending("t2", "MISSING", models.TxnCredit, "5", time.Now())); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown account, got %v", err)
	}

	if err := txns.Complete(ctx, "t1", decimal.NewFromInt(5)); err != nil {
		t.Fatal(err)
	}
	if err := txns.Fail(ctx, "t1", "late"); !errors.Is(err, repo.ErrNotPending) {
		t.Fatalf("want ErrNotPending, got %v", err)
	}
	if err := txns.Complete(ctx, "nope", decimal.Zero); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	got, _ := txns.GetByID(ctx, "t1")
	if got.Status != models.TxnSuccess || !got.BalanceAfter.Valid || !got.BalanceAfter.Decimal.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestListPendingBefore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seed(t, s, "ACC1", "0")
	txns := s.Repositories().Transactions
	now := time.Now()

	_, _ = txns.Create(ctx, pending("old2", "ACC1", models.TxnCredit, "1", now.Add(-time.Hour)))
	_, _ = txns.Create(ctx, pending("old1", "ACC1", models.TxnCredit, "1", now.Add(-2*time.Hour)))
	_, _ = txns.Create(ctx, pending("fresh", "ACC1", models.TxnCredit, "1", now))
	_, _ = txns.Create(ctx, pending("done", "ACC1", models.TxnCredit, "1", now.Add(-3*time.Hour)))
	_ = txns.Fail(ctx, "done", "x")

	got, err := txns.ListPendingBefore(ctx, now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "old1" || got[1].ID != "old2" {
		t.Fatalf("unexpected pending rows: %+v", got)
	}

	got, _ = txns.ListPendingBefore(ctx, now.Add(-time.Minute), 1)
	if len(got) != 1 {
		t.Fatalf("limit ignored: %d rows", len(got))
	}
}

func TestAggregateSuccessful(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seed(t, s, "ACC1", "0")
	txns := s.Repositories().Transactions
	now := time.Now()

	add := func(id string, typ models.TransactionType, amount, category string, at time.Time, ok bool) {
		tx := pending(id, "ACC1", typ, amount, at)
		tx.Category = category
		if _, err := txns.Create(ctx, tx); err != nil {
			t.Fatal(err)
		}
		if ok {
			_ = txns.Complete(ctx, id, decimal.Zero)
		} else {
			_ = txns.Fail(ctx, id, "InsufficientFunds")
		}
	}
	add("a", models.TxnCredit, "100.50", "salary", now, true)
	add("b", models.TxnDebit, "10.25", "food", now, true)
	add("c", models.TxnDebit, "4.75", "food", now, true)
	add("d", models.TxnDebit, "999", "food", now, false)
	add("e", models.TxnDebit, "50", "food", now.AddDate(0, 0, -40), true)
	add("f", models.TxnDebit, "7", "food", now, true)
	if err := s.SoftDelete("f"); err != nil {
		t.Fatal(err)
	}

	got, err := txns.AggregateSuccessful(ctx, "ACC1", now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 groups, got %+v", got)
	}
	food, salary := got[0], got[1]
	if food.Category != "food" || food.Type != models.TxnDebit || food.Count != 2 || !food.Total.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("food group: %+v", food)
	}
	if salary.Category != "salary" || salary.Count != 1 || !salary.Total.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("salary group: %+v", salary)
	}
}
