package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/ledger-backend/internal/api/httpx"
	"github.com/baharkarakas/ledger-backend/internal/api/validate"
	"github.com/baharkarakas/ledger-backend/internal/middleware"
	"github.com/baharkarakas/ledger-backend/internal/models"
	"github.com/baharkarakas/ledger-backend/internal/services"
)

const maxBody = 1 << 20

// Ledger is the part of the balance engine the HTTP layer uses.
type Ledger interface {
	ProcessTransaction(ctx context.Context, req services.TransactionRequest) (services.TransactionResult, error)
	OpenAccount(ctx context.Context, req services.OpenAccountRequest) (models.Account, error)
	GetTransaction(ctx context.Context, id string) (models.Transaction, error)
	GetAccountSummary(ctx context.Context, accountNumber string) (models.AccountSummary, error)
	GetUserBalance(ctx context.Context, userID string) (models.UserBalance, error)
	GetSpendingAnalysis(ctx context.Context, accountNumber string, timeframeDays int) ([]models.CategoryAnalysis, error)
}

type AccountsHandler struct {
	Ledger Ledger
}

func NewAccountsHandler(l Ledger) *AccountsHandler {
	return &AccountsHandler{Ledger: l}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, services.KindInvalidRequest, "malformed JSON body", err.Error())
		return false
	}
	return true
}

func (h *AccountsHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req services.OpenAccountRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID, _ = middleware.UserID(r.Context())
	}
	errs := validate.Errs{}.Add(validate.Required("account_number", req.AccountNumber))
	if len(errs) > 0 {
		httpx.WriteServiceError(w, services.ErrInvalidRequest, errs)
		return
	}
	acc, err := h.Ledger.OpenAccount(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, err, nil)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, acc)
}

// ProcessTransaction uses the Idempotency-Key header as the transaction id
// when the body carries none.
func (h *AccountsHandler) ProcessTransaction(w http.ResponseWriter, r *http.Request) {
	var req services.TransactionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TransactionID == "" {
		req.TransactionID = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}
	errs := validate.Errs{}.Add(
		validate.Required("account_number", req.AccountNumber),
		validate.Required("category", req.Category),
	)
	if len(errs) > 0 {
		httpx.WriteServiceError(w, services.ErrInvalidRequest, errs)
		return
	}

	res, err := h.Ledger.ProcessTransaction(r.Context(), req)
	if err != nil {
		var details any
		if res.TransactionID != "" {
			details = map[string]string{"transaction_id": res.TransactionID, "status": string(res.Status)}
		}
		httpx.WriteServiceError(w, err, details)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *AccountsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Ledger.GetAccountSummary(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		httpx.WriteServiceError(w, err, nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *AccountsHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	days, fe := validate.QueryInt(r.URL.Query(), "timeframe", services.DefaultTimeframeDays)
	if fe != nil {
		httpx.WriteServiceError(w, services.ErrInvalidRequest, validate.Errs{*fe})
		return
	}
	if fe := validate.MinInt("timeframe", int64(days), 1); fe != nil {
		httpx.WriteServiceError(w, services.ErrInvalidRequest, validate.Errs{*fe})
		return
	}
	out, err := h.Ledger.GetSpendingAnalysis(r.Context(), chi.URLParam(r, "accountNumber"), days)
	if err != nil {
		httpx.WriteServiceError(w, err, nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"account_number": chi.URLParam(r, "accountNumber"),
		"timeframe_days": days,
		"analysis":       out,
	})
}

func (h *AccountsHandler) UserBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Ledger.GetUserBalance(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteServiceError(w, err, nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *AccountsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Ledger.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteServiceError(w, err, nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}
