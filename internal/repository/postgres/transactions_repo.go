package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

const transactionCols = `transaction_id, account_number, user_id, transaction_type, amount, category,
       description, occurred_at, status, balance_after, COALESCE(failure_reason, ''),
       is_deleted, created_at, updated_at`

type transactionsRepo struct{ db querier }

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.AccountNumber, &t.UserID, &t.Type, &t.Amount, &t.Category,
		&t.Description, &t.Timestamp, &t.Status, &t.BalanceAfter, &t.FailureReason,
		&t.IsDeleted, &t.CreatedAt, &t.UpdatedAt)
	return t, mapErr(err)
}

func (r *transactionsRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx,
		`INSERT INTO transactions (
		   transaction_id, account_number, user_id, transaction_type, amount,
		   category, description, occurred_at, status
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+transactionCols,
		t.ID, t.AccountNumber, t.UserID, t.Type, t.Amount,
		t.Category, t.Description, t.Timestamp, t.Status,
	))
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE transaction_id=$1`, id))
}

func (r *transactionsRepo) Complete(ctx context.Context, id string, balanceAfter decimal.Decimal) error {
	return r.transition(ctx,
		`UPDATE transactions
		    SET status='success', balance_after=$2, updated_at=now()
		  WHERE transaction_id=$1 AND status='pending'`,
		id, balanceAfter,
	)
}

func (r *transactionsRepo) Fail(ctx context.Context, id string, reason string) error {
	return r.transition(ctx,
		`UPDATE transactions
		    SET status='failed', failure_reason=$2, updated_at=now()
		  WHERE transaction_id=$1 AND status='pending'`,
		id, reason,
	)
}

// transition runs a pending-guarded update and tells a missing row apart
// from one that already reached a terminal status.
func (r *transactionsRepo) transition(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE transaction_id=$1)`, args[0],
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repo.ErrNotFound
	}
	return repo.ErrNotPending
}

func (r *transactionsRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionCols+`
		   FROM transactions
		  WHERE status='pending' AND occurred_at < $1
		  ORDER BY occurred_at
		  LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) AggregateSuccessful(ctx context.Context, accountNumber string, since time.Time) ([]models.CategoryTypeTotal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, transaction_type, SUM(amount), COUNT(*)
		   FROM transactions
		  WHERE account_number=$1
		    AND occurred_at >= $2
		    AND status='success'
		    AND NOT is_deleted
		  GROUP BY category, transaction_type
		  ORDER BY category, transaction_type`,
		accountNumber, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CategoryTypeTotal
	for rows.Next() {
		var row models.CategoryTypeTotal
		if err := rows.Scan(&row.Category, &row.Type, &row.Total, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
