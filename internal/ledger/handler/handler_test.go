package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/ledger"
	"warden/internal/ledger/memory"
	"warden/internal/ledger/models"
	"warden/pkg/domain"
	"warden/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *memory.Ledger) {
	t.Helper()
	backend := memory.New()
	svc, err := ledger.NewService(backend, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, backend
}

func TestHandleCredit(t *testing.T) {
	t.Run("credits the account and returns the balance", func(t *testing.T) {
		router, backend := newRouter(t)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/ledger/credit",
			map[string]any{"account": "alice", "amount": 250}))

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[models.AccountResponse](t, rr)
		assert.Equal(t, "alice", resp.Account)
		assert.Equal(t, uint64(250), resp.Balance)

		balance, _ := backend.BalanceOf(t.Context(), "alice")
		assert.Equal(t, domain.Amount(250), balance)
	})

	t.Run("rejects a missing amount", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/ledger/credit",
			map[string]any{"account": "alice"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/admin/ledger/credit",
			`{"account":"alice","amount":1,"memo":"x"}`))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("reports an overflowing credit as invalid input", func(t *testing.T) {
		router, backend := newRouter(t)
		_, err := backend.Credit(t.Context(), "alice", domain.MaxAmount)
		require.NoError(t, err)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/ledger/credit",
			map[string]any{"account": "alice", "amount": 1}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestHandleGetAccount(t *testing.T) {
	router, backend := newRouter(t)
	_, err := backend.Credit(t.Context(), "bob", 42)
	require.NoError(t, err)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/ledger/accounts/bob"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "balance", float64(42))

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/ledger/accounts/nobody"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "balance", float64(0))
}
