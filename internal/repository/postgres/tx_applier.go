package postgres

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/metrics"
	"github.com/baharkarakas/ledger-backend/internal/models"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// backoff returns the wait before retry number n (n >= 1): exponential in n,
// capped at MaxDelay, with the upper half jittered.
func (p RetryPolicy) backoff(n int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < n && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(half+1)
}

type beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxApplier is the transactional store: every unit runs in one SERIALIZABLE
// database transaction holding the account row lock, so the balance write
// and the status write commit together or not at all.
type TxApplier struct {
	db     beginner
	policy RetryPolicy
}

func NewTxApplier(db beginner, policy RetryPolicy) *TxApplier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &TxApplier{db: db, policy: policy}
}

func (a *TxApplier) Atomic() bool { return true }
func (a *TxApplier) Mode() string { return "transactional" }

func (a *TxApplier) Apply(ctx context.Context, accountNumber string, fn repo.UnitFunc) error {
	for attempt := 1; ; attempt++ {
		err := a.withTx(ctx, func(tx pgx.Tx) error {
			return fn(ctx, &txUnit{
				accounts: &accountsRepo{db: tx},
				txns:     &transactionsRepo{db: tx},
			})
		})
		if err == nil || !retryable(err) {
			return err
		}
		if attempt >= a.policy.MaxAttempts {
			metrics.CommitConflicts.Inc()
			return fmt.Errorf("%w: account %s after %d attempts: %v", repo.ErrConflict, accountNumber, attempt, err)
		}
		metrics.CommitRetries.Inc()

		t := time.NewTimer(a.policy.backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (a *TxApplier) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txUnit struct {
	accounts *accountsRepo
	txns     *transactionsRepo
}

func (u *txUnit) LockAccount(ctx context.Context, accountNumber string) (models.Account, error) {
	return u.accounts.lock(ctx, accountNumber)
}

func (u *txUnit) UpdateBalance(ctx context.Context, accountNumber string, balance decimal.Decimal, at time.Time) error {
	return u.accounts.UpdateBalance(ctx, accountNumber, balance, &at)
}

func (u *txUnit) CompleteTransaction(ctx context.Context, id string, balanceAfter decimal.Decimal) error {
	return u.txns.Complete(ctx, id, balanceAfter)
}
