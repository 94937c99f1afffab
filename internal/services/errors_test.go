package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x", ErrInsufficientFunds), KindInsufficientFunds},
		{ErrAccountUnavailable, KindAccountUnavailable},
		{ErrInvalidAmount, KindInvalidAmount},
		{storageErr(repo.ErrConflict), KindConflict},
		{storageErr(repo.ErrNotPending), KindConflict},
		{storageErr(context.DeadlineExceeded), KindStorageFailure},
		{storageErr(errors.New("connection refused")), KindStorageFailure},
		{errors.New("anything else"), KindStorageFailure},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestKindErrorRoundTrip(t *testing.T) {
	for _, k := range kinds {
		if got := kindError(k.kind); !errors.Is(got, k.err) {
			t.Errorf("kindError(%s) = %v", k.kind, got)
		}
	}
	if got := kindError("orphaned"); !errors.Is(got, ErrStorageFailure) {
		t.Errorf("unknown kind should map to storage failure, got %v", got)
	}
}

func TestStorageErrKeepsContextCause(t *testing.T) {
	err := storageErr(context.Canceled)
	if !errors.Is(err, ErrStorageFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("lost classification: %v", err)
	}
}
