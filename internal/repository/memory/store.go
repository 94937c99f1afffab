// Package memory is an in-process implementation of the account and
// transaction stores. It enforces the same constraints as the SQL schema
// but has no multi-statement transactions, so it pairs with the lock-based
// applier only.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	txns     map[string]models.Transaction
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]models.Account),
		txns:     make(map[string]models.Transaction),
		now:      time.Now,
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repo.Repositories {
	return repo.Repositories{
		Accounts:     (*accountStore)(s),
		Transactions: (*transactionStore)(s),
	}
}

type accountStore Store

func (s *accountStore) Create(ctx context.Context, a models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.AccountNumber]; exists {
		return models.Account{}, repo.ErrDuplicate
	}
	if a.Balance.IsNegative() {
		return models.Account{}, repo.ErrNegativeBalance
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.accounts[a.AccountNumber] = a
	return a, nil
}

func (s *accountStore) GetByNumber(ctx context.Context, accountNumber string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountNumber]
	if !ok {
		return models.Account{}, repo.ErrNotFound
	}
	return a, nil
}

func (s *accountStore) ListActiveByUser(ctx context.Context, userID string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Account
	for _, a := range s.accounts {
		if a.UserID == userID && a.IsActive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

func (s *accountStore) UpdateBalance(ctx context.Context, accountNumber string, balance decimal.Decimal, lastTransactionAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountNumber]
	if !ok {
		return repo.ErrNotFound
	}
	if balance.IsNegative() {
		return repo.ErrNegativeBalance
	}
	a.Balance = balance
	a.LastTransactionDate = lastTransactionAt
	a.UpdatedAt = s.now()
	s.accounts[accountNumber] = a
	return nil
}

type transactionStore Store

func (s *transactionStore) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txns[t.ID]; exists {
		return models.Transaction{}, repo.ErrDuplicate
	}
	if _, ok := s.accounts[t.AccountNumber]; !ok {
		// mirrors the foreign key on account_number
		return models.Transaction{}, repo.ErrNotFound
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	s.txns[t.ID] = t
	return t, nil
}

func (s *transactionStore) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txns[id]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return t, nil
}

func (s *transactionStore) Complete(ctx context.Context, id string, balanceAfter decimal.Decimal) error {
	return s.transition(id, func(t *models.Transaction) {
		t.Status = models.TxnSuccess
		t.BalanceAfter = decimal.NewNullDecimal(balanceAfter)
	})
}

func (s *transactionStore) Fail(ctx context.Context, id string, reason string) error {
	return s.transition(id, func(t *models.Transaction) {
		t.Status = models.TxnFailed
		t.FailureReason = reason
	})
}

func (s *transactionStore) transition(id string, apply func(*models.Transaction)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txns[id]
	if !ok {
		return repo.ErrNotFound
	}
	if t.Status != models.TxnPending {
		return repo.ErrNotPending
	}
	apply(&t)
	t.UpdatedAt = s.now()
	s.txns[id] = t
	return nil
}

func (s *transactionStore) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	for _, t := range s.txns {
		if t.Status == models.TxnPending && t.Timestamp.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *transactionStore) AggregateSuccessful(ctx context.Context, accountNumber string, since time.Time) ([]models.CategoryTypeTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		category string
		typ      models.TransactionType
	}
	groups := map[key]*models.CategoryTypeTotal{}
	for _, t := range s.txns {
		if t.AccountNumber != accountNumber || t.Status != models.TxnSuccess || t.IsDeleted || t.Timestamp.Before(since) {
			continue
		}
		k := key{t.Category, t.Type}
		g, ok := groups[k]
		if !ok {
			g = &models.CategoryTypeTotal{Category: t.Category, Type: t.Type}
			groups[k] = g
		}
		g.Total = g.Total.Add(t.Amount)
		g.Count++
	}

	out := make([]models.CategoryTypeTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// SoftDelete flags a transaction as deleted. Deletion itself belongs to the
// outer CRUD surface; the store exposes it so reports can be exercised.
func (s *Store) SoftDelete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txns[id]
	if !ok {
		return repo.ErrNotFound
	}
	t.IsDeleted = true
	s.txns[id] = t
	return nil
}

// Compile-time checks
var (
	_ repo.Accounts     = (*accountStore)(nil)
	_ repo.Transactions = (*transactionStore)(nil)
)
