package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Accounts:     &accountsRepo{db: pool},
		Transactions: &transactionsRepo{db: pool},
	}
}
