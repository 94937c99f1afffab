// Package locking provides the degraded apply mode for stores without
// multi-statement transactions. Units on the same account are serialized by
// an in-process lock; the balance and status writes are separate statements,
// so a crash between them is only visible to the reconcile sweep.
package locking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

// restoreTimeout bounds the compensating balance write, which runs detached
// from the caller's context.
const restoreTimeout = 5 * time.Second

type accountLock struct {
	sem  chan struct{}
	refs int
}

type Applier struct {
	accounts repo.Accounts
	txns     repo.Transactions
	timeout  time.Duration

	mu    sync.Mutex
	locks map[string]*accountLock
}

// NewApplier returns a lock-based applier. A non-positive timeout waits for
// the lock until ctx is done.
func NewApplier(r repo.Repositories, lockTimeout time.Duration) *Applier {
	return &Applier{
		accounts: r.Accounts,
		txns:     r.Transactions,
		timeout:  lockTimeout,
		locks:    make(map[string]*accountLock),
	}
}

func (a *Applier) Atomic() bool { return false }
func (a *Applier) Mode() string { return "locking" }

func (a *Applier) Apply(ctx context.Context, accountNumber string, fn repo.UnitFunc) error {
	release, err := a.acquire(ctx, accountNumber)
	if err != nil {
		return err
	}
	defer release()

	u := &unit{applier: a, account: accountNumber}
	err = fn(ctx, u)
	if err == nil || !u.wrote {
		return err
	}

	// The balance moved but the unit failed afterwards: put it back.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	if rerr := a.accounts.UpdateBalance(rctx, accountNumber, u.prev.Balance, u.prev.LastTransactionDate); rerr != nil {
		return fmt.Errorf("%w: account %s: restore after %v: %v", repo.ErrInDoubt, accountNumber, err, rerr)
	}
	return err
}

func (a *Applier) acquire(ctx context.Context, accountNumber string) (func(), error) {
	a.mu.Lock()
	l, ok := a.locks[accountNumber]
	if !ok {
		l = &accountLock{sem: make(chan struct{}, 1)}
		a.locks[accountNumber] = l
	}
	l.refs++
	a.mu.Unlock()

	var timeout <-chan time.Time
	if a.timeout > 0 {
		t := time.NewTimer(a.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			a.unref(accountNumber, l)
		}, nil
	case <-timeout:
		a.unref(accountNumber, l)
		return nil, fmt.Errorf("%w: account %s: lock wait exceeded %s", repo.ErrConflict, accountNumber, a.timeout)
	case <-ctx.Done():
		a.unref(accountNumber, l)
		return nil, ctx.Err()
	}
}

func (a *Applier) unref(accountNumber string, l *accountLock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(a.locks, accountNumber)
	}
}

var errForeignAccount = errors.New("unit is scoped to a different account")

type unit struct {
	applier *Applier
	account string

	prev  models.Account
	read  bool
	wrote bool
}

func (u *unit) LockAccount(ctx context.Context, accountNumber string) (models.Account, error) {
	if accountNumber != u.account {
		return models.Account{}, errForeignAccount
	}
	acc, err := u.applier.accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		return models.Account{}, err
	}
	if !u.read {
		u.prev, u.read = acc, true
	}
	return acc, nil
}

func (u *unit) UpdateBalance(ctx context.Context, accountNumber string, balance decimal.Decimal, at time.Time) error {
	if accountNumber != u.account {
		return errForeignAccount
	}
	if !u.read {
		if _, err := u.LockAccount(ctx, accountNumber); err != nil {
			return err
		}
	}
	if err := u.applier.accounts.UpdateBalance(ctx, accountNumber, balance, &at); err != nil {
		return err
	}
	u.wrote = true
	return nil
}

func (u *unit) CompleteTransaction(ctx context.Context, id string, balanceAfter decimal.Decimal) error {
	return u.applier.txns.Complete(ctx, id, balanceAfter)
}
