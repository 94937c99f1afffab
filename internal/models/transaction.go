package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnCredit TransactionType = "credit"
	TxnDebit  TransactionType = "debit"
)

func (t TransactionType) Valid() bool { return t == TxnCredit || t == TxnDebit }

type TransactionStatus string

const (
	TxnPending TransactionStatus = "pending"
	TxnSuccess TransactionStatus = "success"
	TxnFailed  TransactionStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s TransactionStatus) Terminal() bool { return s == TxnSuccess || s == TxnFailed }

type Transaction struct {
	ID            string              `json:"transaction_id"`
	AccountNumber string              `json:"account_number"`
	UserID        string              `json:"user_id"`
	Type          TransactionType     `json:"transaction_type"`
	Amount        decimal.Decimal     `json:"amount"`
	Category      string              `json:"category"`
	Description   string              `json:"description"`
	Timestamp     time.Time           `json:"timestamp"`
	Status        TransactionStatus   `json:"status"`
	BalanceAfter  decimal.NullDecimal `json:"balance_after"`
	FailureReason string              `json:"failure_reason,omitempty"`
	IsDeleted     bool                `json:"is_deleted"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Delta is the signed effect of the transaction on its account balance.
func (t Transaction) Delta() decimal.Decimal {
	if t.Type == TxnDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
