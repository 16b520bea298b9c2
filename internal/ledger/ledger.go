// Package ledger holds fungible balances for principals and wallet custody
// accounts. Backends live in the memory, postgres and redis subpackages; the
// Service here is the admin surface used to fund accounts.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

// Ledger is implemented by every backend. Transfer moves the full amount or
// nothing and fails with sentinel.ErrInsufficientFunds when from cannot cover
// it. Unknown accounts have a zero balance.
type Ledger interface {
	Transfer(ctx context.Context, from, to domain.Principal, amount domain.Amount) error
	BalanceOf(ctx context.Context, account domain.Principal) (domain.Amount, error)
	Credit(ctx context.Context, account domain.Principal, amount domain.Amount) (domain.Amount, error)
}

// TxRunner opens the transaction a credit and its audit event share.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx runs fn directly. Used with backends that do not join SQL
// transactions.
type NoTx struct{}

func (NoTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	ledger         Ledger
	tx             TxRunner
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

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

func NewService(ledger Ledger, tx TxRunner, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if tx == nil {
		tx = NoTx{}
	}
	s := &Service{ledger: ledger, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Credit adds amount to account and returns the new balance.
func (s *Service) Credit(ctx context.Context, actor, account domain.Principal, amount domain.Amount) (domain.Amount, error) {
	var balance domain.Amount
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		balance, err = s.ledger.Credit(txCtx, account, amount)
		if err != nil {
			return translate(err)
		}
		if s.auditPublisher == nil {
			return nil
		}
		if err := s.auditPublisher.Emit(txCtx, audit.Event{
			Actor:   actor,
			Action:  string(audit.EventLedgerCredited),
			Subject: account,
			Amount:  amount,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, string(audit.EventLedgerCredited),
			"account", account.String(),
			"amount", amount.Uint64(),
			"balance", balance.Uint64(),
			"event", string(audit.EventLedgerCredited),
			"log_type", "audit",
		)
	}
	return balance, nil
}

// Balance returns the balance of account.
func (s *Service) Balance(ctx context.Context, account domain.Principal) (domain.Amount, error) {
	balance, err := s.ledger.BalanceOf(ctx, account)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeBalanceUnavailable, "account balance is unavailable")
	}
	return balance, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "credit would overflow the account balance")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeBalanceUnavailable, "ledger is unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit account")
	}
}
