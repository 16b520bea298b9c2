package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/identity"
	jwttoken "warden/internal/jwt_token"
	"warden/internal/ledger"
	ledgerhandler "warden/internal/ledger/handler"
	"warden/internal/ledger/memory"
	"warden/internal/platform/metrics"
	"warden/internal/platform/middleware"
	wallethandler "warden/internal/wallet/handler"
	"warden/internal/wallet/service"
	"warden/internal/wallet/store"
	"warden/pkg/domain"
	"warden/pkg/testutil"
)

const adminToken = "admin-secret"

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (http.Handler, *jwttoken.JWTService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwt := jwttoken.NewJWTService("test-key", "warden")
	backend := memory.New()

	walletSvc, err := service.New(store.NewInMemory(), service.NewShardedTx(time.Second), backend, identity.NewContextIdentity())
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(backend, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return NewRouter(Deps{
		Logger:         logger,
		Wallets:        wallethandler.New(walletSvc, logger),
		Ledger:         ledgerhandler.New(ledgerSvc, logger),
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwt),
		AdminToken:     adminToken,
		HTTPMetrics:    middleware.NewHTTPMetrics(reg),
		Metrics:        metrics.HandlerFor(reg),
		RequestTimeout: 5 * time.Second,
		HealthChecks:   checks,
	}), jwt
}

func bearer(t *testing.T, jwt *jwttoken.JWTService, principal string) string {
	t.Helper()
	token, err := jwt.Issue(domain.Principal(principal), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestWalletRoutesRequireBearerToken(t *testing.T) {
	router, jwt := newTestRouter(t, nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/wallets", map[string]any{"guardians": []string{"b"}})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	req = testutil.NewJSONRequest(t, http.MethodPost, "/wallets", map[string]any{"guardians": []string{"b"}})
	req.Header.Set("Authorization", bearer(t, jwt, "alice"))
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	testutil.AssertJSONContains(t, rr, "owner", "alice")
	assert.NotEmpty(t, rr.Header().Get(middleware.HeaderRequestID))
}

func TestWalletRoutesRejectNonJSONBodies(t *testing.T) {
	router, jwt := newTestRouter(t, nil)

	req := testutil.NewRequestWithBody(t, http.MethodPost, "/wallets", `guardians=b`)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", bearer(t, jwt, "alice"))
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusUnsupportedMediaType)
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/ledger/credit", map[string]any{"account": "alice", "amount": 10})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	req = testutil.NewJSONRequest(t, http.MethodPost, "/admin/ledger/credit", map[string]any{"account": "alice", "amount": 10})
	req.Header.Set("X-Admin-Token", adminToken)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "balance", float64(10))
}

func TestHealth(t *testing.T) {
	t.Run("ok without checks", func(t *testing.T) {
		router, _ := newTestRouter(t, nil)
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})

	t.Run("degraded when a dependency fails", func(t *testing.T) {
		router, _ := newTestRouter(t, map[string]HealthCheck{
			"ledger": func(context.Context) error { return errors.New("connection refused") },
		})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		testutil.AssertJSONContains(t, rr, "status", "degraded")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Body.String(), "warden_http_request_duration_seconds")
}
