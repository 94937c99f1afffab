package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/baharkarakas/ledger-backend/internal/api/httpx"
	"github.com/baharkarakas/ledger-backend/internal/auth"
)

type AuthHandler struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthHandler(tm *auth.TokenManager, appEnv string) *AuthHandler {
	return &AuthHandler{TM: tm, AppEnv: appEnv}
}

type tokenReq struct {
	UserID string `json:"user_id"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// Token mints a bearer token for any user id. Only available in dev; real
// identity is out of scope for this service.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if h.AppEnv != "dev" {
		httpx.WriteError(w, http.StatusNotImplemented, "not_implemented", "token issuing is disabled outside dev", nil)
		return
	}
	var req tokenReq
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req)
	uid := strings.TrimSpace(req.UserID)
	if uid == "" {
		httpx.WriteError(w, http.StatusBadRequest, "InvalidRequest", "user_id is required", nil)
		return
	}

	tok, exp, err := h.TM.Issue(uid)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(exp).Truncate(time.Second) / time.Second),
	})
}
