package services

import (
	"context"
	"errors"
	"testing"

	"github.com/baharkarakas/ledger-backend/internal/models"
)

// seedHistory writes a mix of transactions across a 40-day span, ending at
// the fixture clock.
func seedHistory(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	end := f.clock.Now()

	f.clock.Set(end.AddDate(0, 0, -40))
	mustProcess(t, f, "ACC1", models.TxnCredit, "500", "salary")

	f.clock.Set(end.AddDate(0, 0, -10))
	mustProcess(t, f, "ACC1", models.TxnCredit, "200", "salary")
	mustProcess(t, f, "ACC1", models.TxnDebit, "30.10", "food")
	mustProcess(t, f, "ACC1", models.TxnDebit, "19.90", "food")
	mustProcess(t, f, "ACC1", models.TxnCredit, "5", "food")

	f.clock.Set(end.AddDate(0, 0, -2))
	mustProcess(t, f, "ACC1", models.TxnDebit, "100", "rent")
	if _, err := f.engine.ProcessTransaction(ctx, req("ACC1", models.TxnDebit, "100000")); err == nil {
		t.Fatal("oversized debit should fail")
	}
	f.clock.Set(end)
}

func mustProcess(t *testing.T, f *fixture, account string, typ models.TransactionType, amount, category string) TransactionResult {
	t.Helper()
	r := req(account, typ, amount)
	r.Category = category
	res, err := f.engine.ProcessTransaction(context.Background(), r)
	if err != nil {
		t.Fatalf("%s %s %s: %v", typ, amount, category, err)
	}
	return res
}

func TestAccountSummary(t *testing.T) {
	f := newFixture(t)
	f.open(t, "ACC1", "0", models.AccountActive)
	seedHistory(t, f)

	s, err := f.engine.GetAccountSummary(context.Background(), "ACC1")
	if err != nil {
		t.Fatal(err)
	}
	if !s.CurrentBalance.Equal(dec("555")) || s.Account.AccountNumber != "ACC1" {
		t.Fatalf("unexpected balance: %s", s.CurrentBalance)
	}
	p := s.ThirtyDaySummary
	if p == nil {
		t.Fatal("missing 30-day summary")
	}
	if !p.TotalCredit.Equal(dec("205")) || !p.TotalDebit.Equal(dec("150")) || p.TransactionCount != 5 {
		t.Fatalf("unexpected period: %+v", p)
	}
	if len(p.Categories) != 3 || p.Categories[0] != "food" || p.Categories[2] != "salary" {
		t.Fatalf("unexpected categories: %v", p.Categories)
	}

	want := []struct {
		category string
		total    string
		count    int64
	}{
		{"salary", "200", 1},
		{"rent", "100", 1},
		{"food", "55", 3},
	}
	if len(s.CategoryBreakdown) != len(want) {
		t.Fatalf("unexpected breakdown: %+v", s.CategoryBreakdown)
	}
	for i, w := range want {
		got := s.CategoryBreakdown[i]
		if got.Category != w.category || !got.TotalAmount.Equal(dec(w.total)) || got.Count != w.count {
			t.Fatalf("breakdown[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestAccountSummaryWithoutRecentActivity(t *testing.T) {
	f := newFixture(t)
	f.open(t, "ACC1", "12.50", models.AccountActive)

	s, err := f.engine.GetAccountSummary(context.Background(), "ACC1")
	if err != nil {
		t.Fatal(err)
	}
	if s.ThirtyDaySummary != nil || len(s.CategoryBreakdown) != 0 || !s.CurrentBalance.Equal(dec("12.5")) {
		t.Fatalf("unexpected summary: %+v", s)
	}

	if _, err := f.engine.GetAccountSummary(context.Background(), "NOPE"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}

func TestUserBalanceCountsActiveAccountsOnly(t *testing.T) {
	f := newFixture(t)
	f.open(t, "A1", "10.10", models.AccountActive)
	f.open(t, "A2", "5.05", models.AccountActive)
	f.open(t, "A3", "1000", models.AccountFrozen)

	ub, err := f.engine.GetUserBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ub.TotalBalance.Equal(dec("15.15")) || len(ub.Accounts) != 2 {
		t.Fatalf("unexpected user balance: %+v", ub)
	}
	if ub.Accounts[0].Currency != models.DefaultCurrency {
		t.Fatalf("currency missing: %+v", ub.Accounts[0])
	}

	empty, err := f.engine.GetUserBalance(context.Background(), "nobody")
	if err != nil || !empty.TotalBalance.IsZero() || len(empty.Accounts) != 0 {
		t.Fatalf("unexpected empty balance: %+v, %v", empty, err)
	}
	if _, err := f.engine.GetUserBalance(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest, got %v", err)
	}
}

func TestSpendingAnalysis(t *testing.T) {
	f := newFixture(t)
	f.open(t, "ACC1", "0", models.AccountActive)
	seedHistory(t, f)
	ctx := context.Background()

	got, err := f.engine.GetSpendingAnalysis(ctx, "ACC1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 categories, got %+v", got)
	}
	food := got[0]
	if food.Category != "food" || len(food.Transactions) != 2 {
		t.Fatalf("unexpected food group: %+v", food)
	}
	credit, debit := food.Transactions[0], food.Transactions[1]
	if credit.Type != models.TxnCredit || credit.Count != 1 || !credit.AverageAmount.Equal(dec("5")) {
		t.Fatalf("unexpected food credit: %+v", credit)
	}
	if debit.Type != models.TxnDebit || debit.Count != 2 || !debit.TotalAmount.Equal(dec("50")) || !debit.AverageAmount.Equal(dec("25")) {
		t.Fatalf("unexpected food debit: %+v", debit)
	}

	wide, err := f.engine.GetSpendingAnalysis(ctx, "ACC1", 60)
	if err != nil {
		t.Fatal(err)
	}
	salary := wide[len(wide)-1]
	if salary.Category != "salary" || salary.Transactions[0].Count != 2 || !salary.Transactions[0].AverageAmount.Equal(dec("350")) {
		t.Fatalf("unexpected salary group over 60 days: %+v", salary)
	}

	if _, err := f.engine.GetSpendingAnalysis(ctx, "ACC1", -1); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest, got %v", err)
	}
	if _, err := f.engine.GetSpendingAnalysis(ctx, "NOPE", 30); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}

func TestSpendingAnalysisRoundsAverage(t *testing.T) {
	f := newFixture(t)
	f.open(t, "ACC1", "0", models.AccountActive)
	for _, amt := range []string{"10", "10", "10.01"} {
		mustProcess(t, f, "ACC1", models.TxnCredit, amt, "misc")
	}
	got, err := f.engine.GetSpendingAnalysis(context.Background(), "ACC1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if avg := got[0].Transactions[0].AverageAmount; !avg.Equal(dec("10")) {
		t.Fatalf("want 10.00, got %s", avg)
	}
}
