package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baharkarakas/ledger-backend/internal/api/httpx"
	"github.com/baharkarakas/ledger-backend/internal/auth"
)

type ctxKey string

const ctxUserIDKey ctxKey = "uid"

func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(string)
	return v, ok && v != ""
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, uid)
}

type AuthMiddleware struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthMiddleware(tm *auth.TokenManager, appEnv string) *AuthMiddleware {
	return &AuthMiddleware{TM: tm, AppEnv: appEnv}
}

// Auth requires "Bearer <jwt>". In dev, "Bearer dev-<uid>" is accepted too.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if len(ah) < len("Bearer ") || !strings.EqualFold(ah[:len("Bearer ")], "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		if m.AppEnv == "dev" && strings.HasPrefix(token, "dev-") {
			uid := strings.TrimPrefix(token, "dev-")
			if uid == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "empty dev token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
			return
		}

		claims, err := m.TM.Parse(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}
