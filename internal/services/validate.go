package services

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/ledger-backend/internal/models"
)

const (
	// amounts and balances are NUMERIC(20,2)
	amountScale = 2
	maxIDLength = 128

	maxMoneyDigits = 18
	// coefficients past this are rejected before any rescaling
	maxCoefficientBits = 256
)

var bigTen = big.NewInt(10)

// normalizeMoney accepts values that fit NUMERIC(20,2) exactly and returns
// them at a scale of at most two places. The exponent is bounded before any
// rescaling, so inputs like 1e100000000 are rejected in constant time.
func normalizeMoney(d decimal.Decimal) (decimal.Decimal, bool) {
	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return decimal.Zero, true
	}
	if coef.BitLen() > maxCoefficientBits {
		return decimal.Decimal{}, false
	}
	exp := int64(d.Exponent())
	digits := int64(len(new(big.Int).Abs(coef).String()))
	if digits+exp > maxMoneyDigits {
		return decimal.Decimal{}, false
	}
	if exp < -amountScale {
		drop := -amountScale - exp
		if drop >= digits {
			return decimal.Decimal{}, false
		}
		div := new(big.Int).Exp(bigTen, big.NewInt(drop), nil)
		q, r := new(big.Int).QuoRem(coef, div, new(big.Int))
		if r.Sign() != 0 {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromBigInt(q, -amountScale), true
	}
	return d, true
}

func checkMoney(d decimal.Decimal) bool {
	_, ok := normalizeMoney(d)
	return ok
}

// validateTransaction checks req and returns it with a normalized amount.
func validateTransaction(req TransactionRequest) (TransactionRequest, error) {
	if strings.TrimSpace(req.AccountNumber) == "" {
		return req, fmt.Errorf("%w: account_number is required", ErrInvalidRequest)
	}
	if !req.Type.Valid() {
		return req, fmt.Errorf("%w: transaction_type must be credit or debit", ErrInvalidRequest)
	}
	amount, ok := normalizeMoney(req.Amount)
	if !ok || !amount.IsPositive() {
		return req, ErrInvalidAmount
	}
	req.Amount = amount
	if strings.TrimSpace(req.Category) == "" {
		return req, fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}
	if len(req.TransactionID) > maxIDLength {
		return req, fmt.Errorf("%w: transaction_id longer than %d", ErrInvalidRequest, maxIDLength)
	}
	return req, nil
}

func validateAccount(req OpenAccountRequest) (models.Account, error) {
	a := models.Account{
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		UserID:        strings.TrimSpace(req.UserID),
		Balance:       req.InitialBalance,
		AccountType:   req.AccountType,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Status:        req.Status,
	}
	if a.AccountType == "" {
		a.AccountType = models.AccountSavings
	}
	if a.Currency == "" {
		a.Currency = models.DefaultCurrency
	}
	if a.Status == "" {
		a.Status = models.AccountActive
	}

	switch {
	case a.AccountNumber == "" || len(a.AccountNumber) > maxIDLength:
		return a, fmt.Errorf("%w: account_number is required", ErrInvalidRequest)
	case a.UserID == "":
		return a, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	case !a.AccountType.Valid():
		return a, fmt.Errorf("%w: unknown account_type %q", ErrInvalidRequest, a.AccountType)
	case !a.Status.Valid():
		return a, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, a.Status)
	case len(a.Currency) != 3:
		return a, fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidRequest)
	}
	bal, ok := normalizeMoney(a.Balance)
	if !ok || bal.IsNegative() {
		return a, fmt.Errorf("%w: invalid initial balance", ErrInvalidAmount)
	}
	a.Balance = bal
	return a, nil
}
