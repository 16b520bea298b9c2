package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"warden/internal/wallet/metrics"
	"warden/internal/wallet/models"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

// Store persists wallets. Find and Save calls made with a transactional
// context join that transaction.
type Store interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByID(ctx context.Context, id domain.WalletID) (*models.Wallet, error)
	// FindByIDForUpdate loads a wallet and holds it until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id domain.WalletID) (*models.Wallet, error)
	Save(ctx context.Context, wallet *models.Wallet) error
}

// Ledger is the external ledger holding balances. Transfer either moves the
// full amount or nothing.
type Ledger interface {
	Transfer(ctx context.Context, from, to domain.Principal, amount domain.Amount) error
	BalanceOf(ctx context.Context, account domain.Principal) (domain.Amount, error)
}

// Identity resolves the authenticated caller of the current request.
type Identity interface {
	CurrentCaller(ctx context.Context) (domain.Principal, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	opInit       = "init"
	opDeposit    = "deposit"
	opTransferTo = "transfer_to"
	opRecoverTo  = "recover_to"
	opBalance    = "balance"
	opGet        = "get"
)

// Service implements the wallet operations. Every mutating operation runs in
// one StoreTx transaction scoped to the wallet: checks, ledger movements, the
// state change and its audit event succeed or fail together.
type Service struct {
	store          Store
	tx             StoreTx
	ledger         Ledger
	identity       Identity
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(store Store, tx StoreTx, ledger Ledger, identity Identity, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("wallet store is required")
	}
	if tx == nil {
		return nil, errors.New("wallet transaction runner is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if identity == nil {
		return nil, errors.New("identity is required")
	}
	s := &Service{store: store, tx: tx, ledger: ledger, identity: identity}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("warden/wallet")
	}
	return s, nil
}

// Init creates a wallet owned by the caller.
func (s *Service) Init(ctx context.Context, guardians []domain.Principal, thresholdPct *int) (_ *models.Wallet, err error) {
	ctx, span, done := s.begin(ctx, opInit)
	defer func() { done(err) }()

	caller, err := s.identity.CurrentCaller(ctx)
	if err != nil {
		return nil, err
	}

	wallet, err := models.NewWallet(domain.NewWalletID(), caller, guardians, thresholdPct, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("wallet.id", wallet.ID.String()),
		attribute.Int("wallet.guardians", len(wallet.GuardianOrder)),
		attribute.Int("wallet.threshold", wallet.Threshold),
	)

	err = s.tx.RunInTx(ctx, wallet.ID, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, wallet); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create wallet")
		}
		return s.emit(txCtx, audit.Event{
			WalletID: wallet.ID,
			Actor:    caller,
			Action:   string(audit.EventWalletInitialized),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(audit.EventWalletInitialized),
		"wallet_id", wallet.ID.String(),
		"owner", caller.String(),
		"guardians", len(wallet.GuardianOrder),
		"threshold", wallet.Threshold,
	)
	if s.metrics != nil {
		s.metrics.IncrementWalletsCreated()
	}
	return wallet, nil
}

// Deposit moves amount from the caller's ledger account into wallet custody.
func (s *Service) Deposit(ctx context.Context, walletID domain.WalletID, amount domain.Amount) (_ *models.TransferResult, err error) {
	ctx, span, done := s.begin(ctx, opDeposit, attribute.String("wallet.id", walletID.String()))
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("wallet.amount", amount.Int64()))

	caller, err := s.identity.CurrentCaller(ctx)
	if err != nil {
		return nil, err
	}
	custody := domain.CustodyAccount(walletID)

	var result *models.TransferResult
	err = s.tx.RunInTx(ctx, walletID, func(txCtx context.Context) error {
		if _, err := s.loadForUpdate(txCtx, walletID); err != nil {
			return err
		}
		balance, err := s.balanceOf(txCtx, custody)
		if err != nil {
			return err
		}
		if err := s.ledger.Transfer(txCtx, caller, custody, amount); err != nil {
			return ledgerError(err, dErrors.CodeInsufficientFunds, "payer balance is insufficient")
		}
		result = &models.TransferResult{
			WalletID: walletID,
			From:     caller,
			To:       custody,
			Amount:   amount,
			Balance:  balance + amount,
		}
		return s.emit(txCtx, audit.Event{
			WalletID: walletID,
			Actor:    caller,
			Action:   string(audit.EventDepositReceived),
			Subject:  caller,
			Amount:   amount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(audit.EventDepositReceived),
		"wallet_id", walletID.String(),
		"payer", caller.String(),
		"amount", amount.Uint64(),
	)
	if s.metrics != nil {
		s.metrics.IncrementDeposits()
	}
	return result, nil
}

// TransferTo moves amount from custody to to. Only the owner may transfer.
// Checks run in the order not_owner, then the balance query, then
// insufficient_balance.
func (s *Service) TransferTo(ctx context.Context, walletID domain.WalletID, to domain.Principal, amount domain.Amount) (_ *models.TransferResult, err error) {
	ctx, span, done := s.begin(ctx, opTransferTo, attribute.String("wallet.id", walletID.String()))
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("wallet.amount", amount.Int64()))

	caller, err := s.identity.CurrentCaller(ctx)
	if err != nil {
		return nil, err
	}
	custody := domain.CustodyAccount(walletID)

	var result *models.TransferResult
	err = s.tx.RunInTx(ctx, walletID, func(txCtx context.Context) error {
		wallet, err := s.loadForUpdate(txCtx, walletID)
		if err != nil {
			return err
		}
		if err := wallet.RequireOwner(caller); err != nil {
			return err
		}
		if err := wallet.CheckDestination(to); err != nil {
			return err
		}
		balance, err := s.balanceOf(txCtx, custody)
		if err != nil {
			return err
		}
		if err := wallet.CheckFunds(amount, balance); err != nil {
			return err
		}
		if err := s.ledger.Transfer(txCtx, custody, to, amount); err != nil {
			return ledgerError(err, dErrors.CodeInsufficientBalance, "amount exceeds wallet balance")
		}
		result = &models.TransferResult{
			WalletID: walletID,
			From:     custody,
			To:       to,
			Amount:   amount,
			Balance:  balance - amount,
		}
		return s.emit(txCtx, audit.Event{
			WalletID: walletID,
			Actor:    caller,
			Action:   string(audit.EventTransferSent),
			Subject:  to,
			Amount:   amount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(audit.EventTransferSent),
		"wallet_id", walletID.String(),
		"to", to.String(),
		"amount", amount.Uint64(),
	)
	if s.metrics != nil {
		s.metrics.IncrementTransfers()
	}
	return result, nil
}

// RecoverTo records the caller's guardian vote for addr. The vote that first
// reaches the threshold sweeps the whole custody balance to the locked
// recovery address in the same transaction.
func (s *Service) RecoverTo(ctx context.Context, walletID domain.WalletID, addr domain.Principal) (_ *models.RecoveryResult, err error) {
	ctx, span, done := s.begin(ctx, opRecoverTo, attribute.String("wallet.id", walletID.String()))
	defer func() { done(err) }()

	caller, err := s.identity.CurrentCaller(ctx)
	if err != nil {
		return nil, err
	}
	custody := domain.CustodyAccount(walletID)
	now := requestcontext.Now(ctx)

	var result *models.RecoveryResult
	err = s.tx.RunInTx(ctx, walletID, func(txCtx context.Context) error {
		wallet, err := s.loadForUpdate(txCtx, walletID)
		if err != nil {
			return err
		}

		updated := wallet.Clone()
		outcome, err := updated.CastVote(caller, addr, now)
		if err != nil {
			return err
		}

		var swept domain.Amount
		if outcome.ShouldSweep {
			swept, err = s.balanceOf(txCtx, custody)
			if err != nil {
				return err
			}
			if swept > 0 {
				if err := s.ledger.Transfer(txCtx, custody, outcome.Address, swept); err != nil {
					return ledgerError(err, dErrors.CodeInsufficientBalance, "custody balance changed during sweep")
				}
			}
		}

		if err := s.store.Save(txCtx, updated); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record recovery vote")
		}

		if err := s.emit(txCtx, audit.Event{
			WalletID: walletID,
			Actor:    caller,
			Action:   string(audit.EventRecoveryVoteCast),
			Subject:  outcome.Address,
		}); err != nil {
			return err
		}
		if outcome.ShouldSweep {
			if err := s.emit(txCtx, audit.Event{
				WalletID: walletID,
				Actor:    caller,
				Action:   string(audit.EventWalletRecovered),
				Subject:  outcome.Address,
				Amount:   swept,
			}); err != nil {
				return err
			}
		}

		result = &models.RecoveryResult{
			WalletID: walletID,
			Outcome:  outcome,
			Swept:    swept,
			Status:   updated.Status(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("wallet.votes", result.Outcome.Votes),
		attribute.Int("wallet.threshold", result.Outcome.Threshold),
		attribute.Bool("wallet.swept", result.Outcome.ShouldSweep),
	)
	s.logAudit(ctx, string(audit.EventRecoveryVoteCast),
		"wallet_id", walletID.String(),
		"guardian", caller.String(),
		"votes", result.Outcome.Votes,
		"threshold", result.Outcome.Threshold,
	)
	if s.metrics != nil {
		s.metrics.IncrementRecoveryVotes()
	}
	if result.Outcome.ShouldSweep {
		s.logAudit(ctx, string(audit.EventWalletRecovered),
			"wallet_id", walletID.String(),
			"recovery_address", result.Outcome.Address.String(),
			"amount", result.Swept.Uint64(),
		)
		if s.metrics != nil {
			s.metrics.IncrementRecoveries()
		}
	}
	return result, nil
}

// Balance returns the custody balance of a wallet. Any ledger failure is
// reported as balance_unavailable.
func (s *Service) Balance(ctx context.Context, walletID domain.WalletID) (_ domain.Amount, err error) {
	ctx, _, done := s.begin(ctx, opBalance, attribute.String("wallet.id", walletID.String()))
	defer func() { done(err) }()

	if _, err := s.load(ctx, walletID); err != nil {
		return 0, err
	}
	return s.balanceOf(ctx, domain.CustodyAccount(walletID))
}

// Get returns the wallet state.
func (s *Service) Get(ctx context.Context, walletID domain.WalletID) (_ *models.Wallet, err error) {
	ctx, _, done := s.begin(ctx, opGet, attribute.String("wallet.id", walletID.String()))
	defer func() { done(err) }()

	return s.load(ctx, walletID)
}

func (s *Service) load(ctx context.Context, id domain.WalletID) (*models.Wallet, error) {
	wallet, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return wallet, nil
}

func (s *Service) loadForUpdate(ctx context.Context, id domain.WalletID) (*models.Wallet, error) {
	wallet, err := s.store.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return wallet, nil
}

func (s *Service) balanceOf(ctx context.Context, account domain.Principal) (domain.Amount, error) {
	balance, err := s.ledger.BalanceOf(ctx, account)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeBalanceUnavailable, "wallet balance is unavailable")
	}
	return balance, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func storeError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "wallet not found")
	}
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
}

// ledgerError translates a failed ledger transfer. shortfall is the code for
// a rejected movement, which depends on whose funds were short.
func ledgerError(err error, shortfall dErrors.Code, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrInsufficientFunds):
		return dErrors.Wrap(err, shortfall, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeBalanceUnavailable, "ledger is unavailable")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "transfer would overflow the recipient balance")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger transfer failed")
	}
}

// begin starts the span and timer of an operation. The returned func ends
// both and records a rejection when err is non-nil.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "wallet."+op, trace.WithAttributes(attrs...))
	return ctx, span, func(err error) {
		if s.metrics != nil {
			s.metrics.ObserveOperation(op, start)
		}
		if err != nil {
			code := dErrors.CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, string(code))
			span.SetAttributes(attribute.String("error.code", string(code)))
			s.logRejected(ctx, op, code, err)
		}
		span.End()
	}
}

func (s *Service) logRejected(ctx context.Context, op string, code dErrors.Code, err error) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(op, string(code))
	}
	if s.logger == nil {
		return
	}
	args := []any{
		"operation", op,
		"code", string(code),
		"caller", requestcontext.Principal(ctx).String(),
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}
	if code == dErrors.CodeInternal {
		s.logger.ErrorContext(ctx, "wallet operation failed", args...)
		return
	}
	s.logger.WarnContext(ctx, "wallet operation rejected", args...)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
