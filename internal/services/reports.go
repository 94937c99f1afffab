package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

const (
	summaryWindowDays    = 30
	DefaultTimeframeDays = 30
	maxTimeframeDays     = 3650
)

// Reports read committed state only and take no locks.

func (e *BalanceEngine) account(ctx context.Context, accountNumber string) (models.Account, error) {
	acc, err := e.accounts.GetByNumber(ctx, accountNumber)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, accountNumber)
	}
	if err != nil {
		return models.Account{}, storageErr(err)
	}
	return acc, nil
}

// GetAccountSummary returns the balance with a trailing 30-day aggregate over
// successful, non-deleted transactions. ThirtyDaySummary is nil when the
// window holds no such transactions.
func (e *BalanceEngine) GetAccountSummary(ctx context.Context, accountNumber string) (models.AccountSummary, error) {
	acc, err := e.account(ctx, accountNumber)
	if err != nil {
		return models.AccountSummary{}, err
	}
	since := e.now().UTC().AddDate(0, 0, -summaryWindowDays)
	rows, err := e.txns.AggregateSuccessful(ctx, accountNumber, since)
	if err != nil {
		return models.AccountSummary{}, storageErr(err)
	}

	out := models.AccountSummary{
		Account:           acc,
		CurrentBalance:    acc.Balance,
		CategoryBreakdown: []models.CategoryTotal{},
	}
	if len(rows) == 0 {
		return out, nil
	}

	period := &models.PeriodSummary{TotalCredit: decimal.Zero, TotalDebit: decimal.Zero}
	byCategory := map[string]*models.CategoryTotal{}
	for _, r := range rows {
		switch r.Type {
		case models.TxnCredit:
			period.TotalCredit = period.TotalCredit.Add(r.Total)
		case models.TxnDebit:
			period.TotalDebit = period.TotalDebit.Add(r.Total)
		}
		period.TransactionCount += r.Count

		c, ok := byCategory[r.Category]
		if !ok {
			c = &models.CategoryTotal{Category: r.Category, TotalAmount: decimal.Zero}
			byCategory[r.Category] = c
			period.Categories = append(period.Categories, r.Category)
		}
		c.TotalAmount = c.TotalAmount.Add(r.Total)
		c.Count += r.Count
	}
	sort.Strings(period.Categories)

	for _, c := range byCategory {
		out.CategoryBreakdown = append(out.CategoryBreakdown, *c)
	}
	sort.Slice(out.CategoryBreakdown, func(i, j int) bool {
		a, b := out.CategoryBreakdown[i], out.CategoryBreakdown[j]
		if cmp := a.TotalAmount.Cmp(b.TotalAmount); cmp != 0 {
			return cmp > 0
		}
		return a.Category < b.Category
	})
	out.ThirtyDaySummary = period
	return out, nil
}

// GetUserBalance sums the balances of the user's active accounts.
func (e *BalanceEngine) GetUserBalance(ctx context.Context, userID string) (models.UserBalance, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.UserBalance{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	accs, err := e.accounts.ListActiveByUser(ctx, userID)
	if err != nil {
		return models.UserBalance{}, storageErr(err)
	}

	out := models.UserBalance{
		UserID:       userID,
		TotalBalance: decimal.Zero,
		Accounts:     make([]models.AccountBalance, 0, len(accs)),
	}
	for _, a := range accs {
		out.TotalBalance = out.TotalBalance.Add(a.Balance)
		out.Accounts = append(out.Accounts, models.AccountBalance{
			AccountNumber:       a.AccountNumber,
			AccountType:         a.AccountType,
			Balance:             a.Balance,
			Currency:            a.Currency,
			LastTransactionDate: a.LastTransactionDate,
		})
	}
	return out, nil
}

// GetSpendingAnalysis groups successful transactions of the last
// timeframeDays days by category and type. Zero selects the default window.
func (e *BalanceEngine) GetSpendingAnalysis(ctx context.Context, accountNumber string, timeframeDays int) ([]models.CategoryAnalysis, error) {
	if timeframeDays == 0 {
		timeframeDays = DefaultTimeframeDays
	}
	if timeframeDays < 0 || timeframeDays > maxTimeframeDays {
		return nil, fmt.Errorf("%w: timeframe must be between 1 and %d days", ErrInvalidRequest, maxTimeframeDays)
	}
	if _, err := e.account(ctx, accountNumber); err != nil {
		return nil, err
	}

	since := e.now().UTC().AddDate(0, 0, -timeframeDays)
	rows, err := e.txns.AggregateSuccessful(ctx, accountNumber, since)
	if err != nil {
		return nil, storageErr(err)
	}

	// rows arrive ordered by category, then type
	out := []models.CategoryAnalysis{}
	for _, r := range rows {
		if n := len(out); n == 0 || out[n-1].Category != r.Category {
			out = append(out, models.CategoryAnalysis{Category: r.Category})
		}
		avg := decimal.Zero
		if r.Count > 0 {
			avg = r.Total.DivRound(decimal.NewFromInt(r.Count), amountScale)
		}
		last := &out[len(out)-1]
		last.Transactions = append(last.Transactions, models.TypeAggregate{
			Type:          r.Type,
			TotalAmount:   r.Total,
			Count:         r.Count,
			AverageAmount: avg,
		})
	}
	return out, nil
}
