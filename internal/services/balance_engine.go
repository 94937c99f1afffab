package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/events"
	"github.com/baharkarakas/ledger-backend/internal/metrics"
	"github.com/baharkarakas/ledger-backend/internal/models"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
	"github.com/baharkarakas/ledger-backend/internal/worker"
)

const (
	// statusWriteTimeout bounds the failed-status write, which outlives the
	// caller's context.
	statusWriteTimeout = 5 * time.Second
	publishTimeout     = 10 * time.Second
)

type TransactionRequest struct {
	TransactionID string                 `json:"transaction_id,omitempty"`
	UserID        string                 `json:"user_id,omitempty"`
	AccountNumber string                 `json:"account_number"`
	Type          models.TransactionType `json:"transaction_type"`
	Amount        decimal.Decimal        `json:"amount"`
	Category      string                 `json:"category"`
	Description   string                 `json:"description"`
}

type TransactionResult struct {
	TransactionID string                   `json:"transaction_id"`
	Status        models.TransactionStatus `json:"status"`
	NewBalance    decimal.Decimal          `json:"new_balance"`
	// Replayed is set when the result comes from an earlier submission
	// with the same transaction_id.
	Replayed bool `json:"replayed,omitempty"`
}

type OpenAccountRequest struct {
	AccountNumber  string               `json:"account_number"`
	UserID         string               `json:"user_id"`
	AccountType    models.AccountType   `json:"account_type"`
	Currency       string               `json:"currency"`
	Status         models.AccountStatus `json:"status"`
	InitialBalance decimal.Decimal      `json:"initial_balance"`
}

type EngineDeps struct {
	Repos   repo.Repositories
	Applier repo.Applier
	// Publisher and Pool are optional; without both no events are sent.
	Publisher events.Publisher
	Pool      *worker.Pool
	Logger    *slog.Logger
	Now       func() time.Time
}

// BalanceEngine owns every write to account balances and transaction
// statuses. It holds no mutable state of its own.
type BalanceEngine struct {
	accounts  repo.Accounts
	txns      repo.Transactions
	applier   repo.Applier
	publisher events.Publisher
	pool      *worker.Pool
	log       *slog.Logger
	now       func() time.Time
}

func NewBalanceEngine(d EngineDeps) *BalanceEngine {
	e := &BalanceEngine{
		accounts:  d.Repos.Accounts,
		txns:      d.Repos.Transactions,
		applier:   d.Applier,
		publisher: d.Publisher,
		pool:      d.Pool,
		log:       d.Logger,
		now:       d.Now,
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// ProcessTransaction validates req and applies it to the account balance.
// A transaction row is written as pending before the balance moves and ends
// as success or failed; the returned error always matches that final status.
func (e *BalanceEngine) ProcessTransaction(ctx context.Context, req TransactionRequest) (TransactionResult, error) {
	res, err := e.processTransaction(ctx, req)
	if err != nil {
		metrics.TransactionsFailed.WithLabelValues(Kind(err)).Inc()
	}
	return res, err
}

func (e *BalanceEngine) processTransaction(ctx context.Context, req TransactionRequest) (TransactionResult, error) {
	req, err := validateTransaction(req)
	if err != nil {
		return TransactionResult{}, err
	}

	if req.TransactionID != "" {
		prev, err := e.txns.GetByID(ctx, req.TransactionID)
		switch {
		case err == nil:
			return e.replay(prev, req)
		case !errors.Is(err, repo.ErrNotFound):
			return TransactionResult{}, storageErr(err)
		}
	}

	acc, err := e.accounts.GetByNumber(ctx, req.AccountNumber)
	if errors.Is(err, repo.ErrNotFound) {
		return TransactionResult{}, fmt.Errorf("%w: %s", ErrAccountUnavailable, req.AccountNumber)
	}
	if err != nil {
		return TransactionResult{}, storageErr(err)
	}
	if !acc.IsActive() {
		return TransactionResult{}, fmt.Errorf("%w: %s is %s", ErrAccountUnavailable, acc.AccountNumber, acc.Status)
	}

	txn := models.Transaction{
		ID:            req.TransactionID,
		AccountNumber: acc.AccountNumber,
		UserID:        req.UserID,
		Type:          req.Type,
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		Timestamp:     e.now().UTC(),
		Status:        models.TxnPending,
	}
	if txn.UserID == "" {
		txn.UserID = acc.UserID
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}

	txn, err = e.txns.Create(ctx, txn)
	if errors.Is(err, repo.ErrDuplicate) {
		// lost a race with a concurrent submission of the same id
		prev, gerr := e.txns.GetByID(ctx, req.TransactionID)
		if gerr != nil {
			return TransactionResult{}, storageErr(gerr)
		}
		return e.replay(prev, req)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return TransactionResult{}, fmt.Errorf("%w: %s", ErrAccountUnavailable, req.AccountNumber)
	}
	if err != nil {
		return TransactionResult{}, storageErr(err)
	}

	newBalance, err := e.apply(ctx, txn)
	if err != nil {
		e.markFailed(ctx, txn, err)
		return TransactionResult{TransactionID: txn.ID, Status: models.TxnFailed}, err
	}

	metrics.TransactionsTotal.WithLabelValues(string(txn.Type), string(models.TxnSuccess)).Inc()
	e.publish(txn, newBalance)
	return TransactionResult{
		TransactionID: txn.ID,
		Status:        models.TxnSuccess,
		NewBalance:    newBalance,
	}, nil
}

// apply moves the balance and completes txn as one unit on the account.
func (e *BalanceEngine) apply(ctx context.Context, txn models.Transaction) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := e.applier.Apply(ctx, txn.AccountNumber, func(ctx context.Context, u repo.Unit) error {
		acc, err := u.LockAccount(ctx, txn.AccountNumber)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrAccountUnavailable, txn.AccountNumber)
		}
		if err != nil {
			return err
		}
		// status may have changed since the snapshot read
		if !acc.IsActive() {
			return fmt.Errorf("%w: %s is %s", ErrAccountUnavailable, acc.AccountNumber, acc.Status)
		}

		next := acc.Balance.Add(txn.Delta())
		if next.IsNegative() {
			return fmt.Errorf("%w: balance %s, debit %s", ErrInsufficientFunds, acc.Balance, txn.Amount)
		}
		if !checkMoney(next) {
			return fmt.Errorf("%w: resulting balance out of range", ErrInvalidAmount)
		}

		err = u.UpdateBalance(ctx, txn.AccountNumber, next, e.now().UTC())
		if errors.Is(err, repo.ErrNegativeBalance) {
			return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		if err != nil {
			return err
		}
		if err := u.CompleteTransaction(ctx, txn.ID, next); err != nil {
			return err
		}
		newBalance = next
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrInDoubt) {
			return decimal.Decimal{}, errors.Join(ErrStorageFailure, err)
		}
		return decimal.Decimal{}, storageErr(err)
	}
	return newBalance, nil
}

// markFailed records the terminal failure of txn. It runs detached from
// ctx so a cancelled caller does not leave the row pending.
func (e *BalanceEngine) markFailed(ctx context.Context, txn models.Transaction, cause error) {
	if errors.Is(cause, repo.ErrInDoubt) {
		e.log.Error("balance write in doubt; transaction left pending for reconcile",
			"transaction_id", txn.ID, "account_number", txn.AccountNumber, "err", cause)
		return
	}
	metrics.TransactionsTotal.WithLabelValues(string(txn.Type), string(models.TxnFailed)).Inc()

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	if err := e.txns.Fail(fctx, txn.ID, Kind(cause)); err != nil {
		e.log.Error("mark transaction failed",
			"transaction_id", txn.ID, "cause", cause, "err", err)
	}
}

// replay answers a resubmitted transaction_id from the stored row without
// touching the balance again.
func (e *BalanceEngine) replay(prev models.Transaction, req TransactionRequest) (TransactionResult, error) {
	if prev.AccountNumber != req.AccountNumber || prev.Type != req.Type || !prev.Amount.Equal(req.Amount) {
		return TransactionResult{}, fmt.Errorf("%w: transaction_id %s already used for a different request", ErrConflict, prev.ID)
	}
	res := TransactionResult{TransactionID: prev.ID, Status: prev.Status, Replayed: true}
	switch prev.Status {
	case models.TxnSuccess:
		res.NewBalance = prev.BalanceAfter.Decimal
		return res, nil
	case models.TxnFailed:
		return res, fmt.Errorf("%w: transaction %s failed earlier", kindError(prev.FailureReason), prev.ID)
	default:
		return res, fmt.Errorf("%w: transaction %s is still pending", ErrConflict, prev.ID)
	}
}

func (e *BalanceEngine) publish(txn models.Transaction, balance decimal.Decimal) {
	if e.publisher == nil || e.pool == nil {
		return
	}
	ev := events.Completed(txn, balance)
	ok := e.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.publisher.Publish(ctx, ev); err != nil {
			e.log.Warn("publish transaction event", "transaction_id", ev.TransactionID, "err", err)
		}
	})
	if !ok {
		e.log.Warn("event queue full; dropping event", "transaction_id", ev.TransactionID)
	}
}

// GetTransaction looks up a transaction by id. Soft-deleted rows are hidden.
func (e *BalanceEngine) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	t, err := e.txns.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && t.IsDeleted) {
		return models.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	if err != nil {
		return models.Transaction{}, storageErr(err)
	}
	return t, nil
}

// OpenAccount provisions a new account.
func (e *BalanceEngine) OpenAccount(ctx context.Context, req OpenAccountRequest) (models.Account, error) {
	a, err := validateAccount(req)
	if err != nil {
		return models.Account{}, err
	}
	a, err = e.accounts.Create(ctx, a)
	if errors.Is(err, repo.ErrDuplicate) {
		return models.Account{}, fmt.Errorf("%w: account %s already exists", ErrConflict, req.AccountNumber)
	}
	if err != nil {
		return models.Account{}, storageErr(err)
	}
	return a, nil
}
