package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/baharkarakas/ledger-backend/internal/services"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

var kindStatus = map[string]int{
	services.KindInvalidAmount:       http.StatusBadRequest,
	services.KindInvalidRequest:      http.StatusBadRequest,
	services.KindAccountNotFound:     http.StatusNotFound,
	services.KindTransactionNotFound: http.StatusNotFound,
	services.KindConflict:            http.StatusConflict,
	services.KindAccountUnavailable:  http.StatusUnprocessableEntity,
	services.KindInsufficientFunds:   http.StatusUnprocessableEntity,
	services.KindStorageFailure:      http.StatusServiceUnavailable,
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	if s, ok := kindStatus[services.Kind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteServiceError writes err using its error kind as the code. Storage
// failures hide the underlying message.
func WriteServiceError(w http.ResponseWriter, err error, details interface{}) {
	kind := services.Kind(err)
	msg := err.Error()
	if kind == services.KindStorageFailure {
		msg = services.ErrStorageFailure.Error()
	}
	WriteError(w, StatusFor(err), kind, msg, details)
}
