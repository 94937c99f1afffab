package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate key")
	ErrNotPending = errors.New("transaction is not pending")
	// ErrNegativeBalance is returned when a write would break balance >= 0.
	ErrNegativeBalance = errors.New("balance would become negative")
	// ErrConflict means the commit lost to concurrent writers more times
	// than the retry budget allows, or the account lock could not be taken
	// in time.
	ErrConflict = errors.New("commit conflict")
	// ErrInDoubt means a lock-based apply wrote the balance but could neither
	// finish nor undo it. The transaction row stays pending for the sweep.
	ErrInDoubt = errors.New("apply outcome in doubt")
)

type Accounts interface {
	Create(ctx context.Context, a models.Account) (models.Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (models.Account, error)
	ListActiveByUser(ctx context.Context, userID string) ([]models.Account, error)
	UpdateBalance(ctx context.Context, accountNumber string, balance decimal.Decimal, lastTransactionAt *time.Time) error
}

type Transactions interface {
	// Create inserts a new row; ErrDuplicate if the id already exists.
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	// Complete moves a pending row to success; ErrNotPending otherwise.
	Complete(ctx context.Context, id string, balanceAfter decimal.Decimal) error
	// Fail moves a pending row to failed; ErrNotPending otherwise.
	Fail(ctx context.Context, id string, reason string) error
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
	AggregateSuccessful(ctx context.Context, accountNumber string, since time.Time) ([]models.CategoryTypeTotal, error)
}

// Unit is the store surface visible inside one atomic-commit unit.
type Unit interface {
	// LockAccount reads the account and holds it against concurrent
	// appliers until the unit ends.
	LockAccount(ctx context.Context, accountNumber string) (models.Account, error)
	UpdateBalance(ctx context.Context, accountNumber string, balance decimal.Decimal, at time.Time) error
	CompleteTransaction(ctx context.Context, id string, balanceAfter decimal.Decimal) error
}

type UnitFunc func(ctx context.Context, u Unit) error

// Applier runs fn as one isolated unit scoped to a single account. fn may be
// invoked more than once when the backing store retries on conflict.
type Applier interface {
	Apply(ctx context.Context, accountNumber string, fn UnitFunc) error
	// Atomic is true when balance and status commit together.
	Atomic() bool
	Mode() string
}

type Repositories struct {
	Accounts     Accounts
	Transactions Transactions
}
