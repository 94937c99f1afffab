package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountCols = `account_number, user_id, balance, account_type, currency, status,
       last_transaction_date, created_at, updated_at`

type accountsRepo struct{ db querier }

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.AccountNumber, &a.UserID, &a.Balance, &a.AccountType, &a.Currency, &a.Status,
		&a.LastTransactionDate, &a.CreatedAt, &a.UpdatedAt)
	return a, mapErr(err)
}

func (r *accountsRepo) Create(ctx context.Context, a models.Account) (models.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`INSERT INTO accounts (account_number, user_id, balance, account_type, currency, status)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING `+accountCols,
		a.AccountNumber, a.UserID, a.Balance, a.AccountType, a.Currency, a.Status,
	))
}

func (r *accountsRepo) GetByNumber(ctx context.Context, accountNumber string) (models.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE account_number=$1`, accountNumber))
}

// lock is GetByNumber with a row lock; only meaningful inside a tx.
func (r *accountsRepo) lock(ctx context.Context, accountNumber string) (models.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE account_number=$1 FOR UPDATE`, accountNumber))
}

func (r *accountsRepo) ListActiveByUser(ctx context.Context, userID string) ([]models.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountCols+`
		   FROM accounts
		  WHERE user_id=$1 AND status='active'
		  ORDER BY account_number`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) UpdateBalance(ctx context.Context, accountNumber string, balance decimal.Decimal, lastTransactionAt *time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts
		    SET balance = $2,
		        last_transaction_date = $3,
		        updated_at = now()
		  WHERE account_number = $1`,
		accountNumber, balance, lastTransactionAt,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
