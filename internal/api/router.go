package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/ledger-backend/internal/api/handlers"
	"github.com/baharkarakas/ledger-backend/internal/auth"
	"github.com/baharkarakas/ledger-backend/internal/config"
	"github.com/baharkarakas/ledger-backend/internal/metrics"
	"github.com/baharkarakas/ledger-backend/internal/middleware"
)

type RouterDeps struct {
	Cfg    config.Config
	Ledger handlers.Ledger
	TM     *auth.TokenManager
	// Limiter replaces the local token bucket when set.
	Limiter *middleware.RedisLimiter
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	if d.Limiter == nil {
		r.Use(middleware.RateLimit(d.Cfg.RateRPS))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	ah := handlers.NewAuthHandler(d.TM, d.Cfg.Env)
	acc := handlers.NewAccountsHandler(d.Ledger)
	authMW := middleware.NewAuthMiddleware(d.TM, d.Cfg.Env)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", ah.Token)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth)
			if d.Limiter != nil {
				r.Use(d.Limiter.Middleware)
			}

			r.Post("/accounts", acc.OpenAccount)
			r.Post("/accounts/transaction", acc.ProcessTransaction)
			r.Get("/accounts/{accountNumber}/summary", acc.Summary)
			r.Get("/accounts/{accountNumber}/analysis", acc.Analysis)
			r.Get("/users/{userID}/balance", acc.UserBalance)
			r.Get("/transactions/{id}", acc.GetTransaction)
		})
	})

	return r
}
