package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hunters2410/zimaio-sub004/pkg/auth"
	pgpkg "github.com/hunters2410/zimaio-sub004/pkg/postgres"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Handler        *PaymentHandler
	TokenValidator auth.TokenValidator
	// DB is pinged by /readyz; nil means always ready.
	DB      pgpkg.Pinger
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter registers all REST API routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		MaxAge:         300,
	}))

	// Health
	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(cfg.DB))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// Processor callbacks authenticate by signature, not bearer token.
	r.Post("/webhooks/paynow", cfg.Handler.PaynowNotification)

	r.Group(func(r chi.Router) {
		r.Use(auth.HTTPMiddleware(cfg.TokenValidator))

		r.Post("/process-payment", cfg.Handler.ProcessPayment)
		r.Post("/v1/payments", cfg.Handler.ProcessPayment)
		r.Get("/v1/payments/transactions/{id}", cfg.Handler.GetTransaction)
	})

	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readyz(db pgpkg.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pgpkg.HealthCheck(ctx, db); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
