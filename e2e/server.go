// Package e2e drives the HTTP API through godog feature files. Every scenario
// gets a fresh server backed by in-memory stores.
package e2e

import (
	"io"
	"log/slog"
	"net/http/httptest"

	"github.com/prometheus/client_golang/prometheus"

	httpapi "warden/internal/http"
	"warden/internal/identity"
	jwttoken "warden/internal/jwt_token"
	"warden/internal/ledger"
	ledgerhandler "warden/internal/ledger/handler"
	memoryledger "warden/internal/ledger/memory"
	"warden/internal/platform/metrics"
	"warden/internal/platform/middleware"
	wallethandler "warden/internal/wallet/handler"
	walletmetrics "warden/internal/wallet/metrics"
	walletservice "warden/internal/wallet/service"
	walletstore "warden/internal/wallet/store"
	"warden/pkg/platform/audit/publisher"
	auditmemory "warden/pkg/platform/audit/store/memory"
)

const (
	signingKey = "e2e-signing-key"
	issuer     = "warden"
	adminToken = "e2e-admin-token"
)

// NewServer starts an API server wired the way `warden serve` wires the
// memory backends.
func NewServer() (*httptest.Server, *jwttoken.JWTService, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	balances := memoryledger.New()
	pub := publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithLogger(logger))

	wallets, err := walletservice.New(
		walletstore.NewInMemory(),
		walletservice.NewShardedTx(0),
		balances,
		identity.NewContextIdentity(),
		walletservice.WithLogger(logger),
		walletservice.WithAuditPublisher(pub),
		walletservice.WithMetrics(walletmetrics.NewWithRegisterer(reg)),
	)
	if err != nil {
		return nil, nil, err
	}
	ledgerSvc, err := ledger.NewService(balances, nil,
		ledger.WithLogger(logger),
		ledger.WithAuditPublisher(pub),
	)
	if err != nil {
		return nil, nil, err
	}

	jwt := jwttoken.NewJWTService(signingKey, issuer)
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         logger,
		Wallets:        wallethandler.New(wallets, logger),
		Ledger:         ledgerhandler.New(ledgerSvc, logger),
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwt),
		AdminToken:     adminToken,
		HTTPMetrics:    middleware.NewHTTPMetrics(reg),
		Metrics:        metrics.HandlerFor(reg),
	})
	return httptest.NewServer(router), jwt, nil
}
