package services

import (
	"context"
	"errors"
	"fmt"

	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

var (
	ErrAccountUnavailable  = errors.New("account not found or not active")
	ErrInvalidAmount       = errors.New("amount must be a positive value with at most two decimal places")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrConflict            = errors.New("conflicting concurrent update, retry later")
	ErrStorageFailure      = errors.New("storage unavailable")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidRequest      = errors.New("invalid request")
)

const (
	KindAccountUnavailable  = "AccountUnavailable"
	KindInvalidAmount       = "InvalidAmount"
	KindInsufficientFunds   = "InsufficientFunds"
	KindConflict            = "Conflict"
	KindStorageFailure      = "StorageFailure"
	KindAccountNotFound     = "AccountNotFound"
	KindTransactionNotFound = "TransactionNotFound"
	KindInvalidRequest      = "InvalidRequest"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrAccountUnavailable, KindAccountUnavailable},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrConflict, KindConflict},
	{ErrStorageFailure, KindStorageFailure},
	{ErrAccountNotFound, KindAccountNotFound},
	{ErrTransactionNotFound, KindTransactionNotFound},
	{ErrInvalidRequest, KindInvalidRequest},
}

// Kind names the error kind of err. Anything unclassified is a storage
// failure.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindStorageFailure
}

// kindError resolves a kind stored in failure_reason back to its sentinel.
func kindError(kind string) error {
	for _, k := range kinds {
		if k.kind == kind {
			return k.err
		}
	}
	return ErrStorageFailure
}

// storageErr classifies an error coming out of the repository layer.
func storageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrConflict), errors.Is(err, repo.ErrNotPending):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrStorageFailure, err)
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}
