// Package httpapi assembles the service router: platform middleware, the
// authenticated wallet API, the admin ledger API, health and metrics.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	ledgerhandler "warden/internal/ledger/handler"
	"warden/internal/platform/middleware"
	wallethandler "warden/internal/wallet/handler"
	"warden/pkg/platform/httputil"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger         *slog.Logger
	Wallets        *wallethandler.Handler
	Ledger         *ledgerhandler.Handler
	TokenValidator middleware.TokenValidator
	AdminToken     string
	// RateLimit, when set, budgets authenticated wallet requests.
	RateLimit      func(http.Handler) http.Handler
	HTTPMetrics    *middleware.HTTPMetrics
	Metrics        http.Handler
	RequestTimeout time.Duration
	// HealthChecks are run by /health; any failure reports 503.
	HealthChecks map[string]HealthCheck
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(d.RequestTimeout))
	if d.HTTPMetrics != nil {
		r.Use(middleware.LatencyMiddleware(d.HTTPMetrics))
	}

	r.Get("/health", healthHandler(d.HealthChecks))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	if d.Wallets != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(middleware.RequireAuth(d.TokenValidator, d.Logger))
			if d.RateLimit != nil {
				r.Use(d.RateLimit)
			}
			d.Wallets.Register(r)
		})
	}

	if d.Ledger != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(middleware.RequireAdminToken(d.AdminToken, d.Logger))
			d.Ledger.Register(r)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(r.Context()); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
