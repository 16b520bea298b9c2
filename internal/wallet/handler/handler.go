package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/wallet/models"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// Service defines the wallet operations the handler exposes.
type Service interface {
	Init(ctx context.Context, guardians []domain.Principal, thresholdPct *int) (*models.Wallet, error)
	Get(ctx context.Context, walletID domain.WalletID) (*models.Wallet, error)
	Deposit(ctx context.Context, walletID domain.WalletID, amount domain.Amount) (*models.TransferResult, error)
	TransferTo(ctx context.Context, walletID domain.WalletID, to domain.Principal, amount domain.Amount) (*models.TransferResult, error)
	RecoverTo(ctx context.Context, walletID domain.WalletID, addr domain.Principal) (*models.RecoveryResult, error)
	Balance(ctx context.Context, walletID domain.WalletID) (domain.Amount, error)
}

// Handler handles wallet endpoints. Authentication is applied by the router.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the wallet routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/wallets", h.HandleCreate)
	r.Route("/wallets/{walletID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Get("/balance", h.HandleBalance)
		r.Post("/deposit", h.HandleDeposit)
		r.Post("/transfer", h.HandleTransfer)
		r.Post("/recover", h.HandleRecover)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateWalletRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	wallet, err := h.service.Init(ctx, req.ParsedGuardians(), req.ThresholdPct)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/wallets/"+wallet.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, models.ToWalletResponse(wallet))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	walletID, ok := h.walletID(w, r)
	if !ok {
		return
	}
	wallet, err := h.service.Get(r.Context(), walletID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToWalletResponse(wallet))
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	walletID, ok := h.walletID(w, r)
	if !ok {
		return
	}
	balance, err := h.service.Balance(r.Context(), walletID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.BalanceResponse{
		WalletID: walletID.String(),
		Balance:  balance.Uint64(),
	})
}

func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletID, ok := h.walletID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.DepositRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.service.Deposit(ctx, walletID, req.ParsedAmount())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToTransferResponse(result))
}

func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletID, ok := h.walletID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.service.TransferTo(ctx, walletID, req.ParsedTo(), req.ParsedAmount())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToTransferResponse(result))
}

func (h *Handler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletID, ok := h.walletID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.RecoverRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.service.RecoverTo(ctx, walletID, req.ParsedAddress())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToRecoveryResponse(result))
}

func (h *Handler) walletID(w http.ResponseWriter, r *http.Request) (domain.WalletID, bool) {
	id, err := domain.ParseWalletID(chi.URLParam(r, "walletID"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid wallet id",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid wallet id"))
		return domain.WalletID{}, false
	}
	return id, true
}
