// Package events publishes ledger domain events. Publishing is best-effort:
// a committed transaction stays committed whether or not its event is
// delivered.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
)

const TransactionCompleted = "transaction.completed"

type TransactionEvent struct {
	Event           string                 `json:"event"`
	TransactionID   string                 `json:"transaction_id"`
	AccountNumber   string                 `json:"account_number"`
	UserID          string                 `json:"user_id"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal        `json:"amount"`
	BalanceAfter    decimal.Decimal        `json:"balance_after"`
	Category        string                 `json:"category"`
	OccurredAt      time.Time              `json:"occurred_at"`
}

// Completed builds the event for a transaction that reached success.
func Completed(t models.Transaction, balanceAfter decimal.Decimal) TransactionEvent {
	return TransactionEvent{
		Event:           TransactionCompleted,
		TransactionID:   t.ID,
		AccountNumber:   t.AccountNumber,
		UserID:          t.UserID,
		TransactionType: t.Type,
		Amount:          t.Amount,
		BalanceAfter:    balanceAfter,
		Category:        t.Category,
		OccurredAt:      t.Timestamp,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev TransactionEvent) error
	Close() error
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev TransactionEvent) error {
	slog.Debug("event publish skipped", "event", ev.Event, "transaction_id", ev.TransactionID)
	return nil
}

func (NopPublisher) Close() error { return nil }
