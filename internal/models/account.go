package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountSavings  AccountType = "savings"
	AccountChecking AccountType = "checking"
	AccountCredit   AccountType = "credit"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountSavings, AccountChecking, AccountCredit:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
	AccountFrozen   AccountStatus = "frozen"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountInactive, AccountFrozen:
		return true
	}
	return false
}

const DefaultCurrency = "INR"

// Account balances are exact decimals with two fractional digits.
// Balance never goes below zero in a committed state.
type Account struct {
	AccountNumber       string          `json:"account_number"`
	UserID              string          `json:"user_id"`
	Balance             decimal.Decimal `json:"balance"`
	AccountType         AccountType     `json:"account_type"`
	Currency            string          `json:"currency"`
	Status              AccountStatus   `json:"status"`
	LastTransactionDate *time.Time      `json:"last_transaction_date"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (a Account) IsActive() bool { return a.Status == AccountActive }
