package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTypeTotal is one GROUP BY (category, transaction_type) row over
// successful, non-deleted transactions.
type CategoryTypeTotal struct {
	Category string          `json:"category"`
	Type     TransactionType `json:"type"`
	Total    decimal.Decimal `json:"total_amount"`
	Count    int64           `json:"count"`
}

type PeriodSummary struct {
	TotalCredit      decimal.Decimal `json:"total_credit"`
	TotalDebit       decimal.Decimal `json:"total_debit"`
	TransactionCount int64           `json:"transaction_count"`
	Categories       []string        `json:"categories"`
}

type CategoryTotal struct {
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int64           `json:"count"`
}

type AccountSummary struct {
	Account           Account         `json:"account_details"`
	CurrentBalance    decimal.Decimal `json:"current_balance"`
	ThirtyDaySummary  *PeriodSummary  `json:"thirty_day_summary"`
	CategoryBreakdown []CategoryTotal `json:"category_breakdown"`
}

type AccountBalance struct {
	AccountNumber       string          `json:"account_number"`
	AccountType         AccountType     `json:"account_type"`
	Balance             decimal.Decimal `json:"balance"`
	Currency            string          `json:"currency"`
	LastTransactionDate *time.Time      `json:"last_transaction_date"`
}

type UserBalance struct {
	UserID       string           `json:"user_id"`
	TotalBalance decimal.Decimal  `json:"total_balance"`
	Accounts     []AccountBalance `json:"accounts"`
}

type TypeAggregate struct {
	Type          TransactionType `json:"type"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Count         int64           `json:"count"`
	AverageAmount decimal.Decimal `json:"average_amount"`
}

type CategoryAnalysis struct {
	Category     string          `json:"category"`
	Transactions []TypeAggregate `json:"transactions"`
}
