// Package handler exposes the ledger admin endpoints used to fund accounts.
// Routes are mounted behind the admin token middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/ledger/models"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// AdminActor is recorded as the actor of admin ledger events.
const AdminActor domain.Principal = "admin"

type Service interface {
	Credit(ctx context.Context, actor, account domain.Principal, amount domain.Amount) (domain.Amount, error)
	Balance(ctx context.Context, account domain.Principal) (domain.Amount, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/ledger/credit", h.HandleCredit)
	r.Get("/admin/ledger/accounts/{account}", h.HandleGetAccount)
}

func (h *Handler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	balance, err := h.service.Credit(ctx, AdminActor, req.ParsedAccount(), req.ParsedAmount())
	if err != nil {
		h.logger.WarnContext(ctx, "failed to credit account",
			"request_id", requestID,
			"account", req.ParsedAccount().String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToAccountResponse(req.ParsedAccount(), balance))
}

func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := domain.ParsePrincipal(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account"))
		return
	}
	balance, err := h.service.Balance(ctx, account)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read account balance",
			"request_id", requestcontext.RequestID(ctx),
			"account", account.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToAccountResponse(account, balance))
}
