package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"warden/pkg/domain"
	"warden/pkg/platform/circuit"
	"warden/pkg/platform/sentinel"
)

// Guarded puts a circuit breaker in front of a remote ledger backend. While
// the circuit is open, calls fail with sentinel.ErrUnavailable without
// reaching the backend.
type Guarded struct {
	next    Ledger
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next Ledger, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) Transfer(ctx context.Context, from, to domain.Principal, amount domain.Amount) error {
	return g.call(ctx, "transfer", func() error {
		return g.next.Transfer(ctx, from, to, amount)
	})
}

func (g *Guarded) BalanceOf(ctx context.Context, account domain.Principal) (domain.Amount, error) {
	var balance domain.Amount
	err := g.call(ctx, "balance_of", func() error {
		var err error
		balance, err = g.next.BalanceOf(ctx, account)
		return err
	})
	return balance, err
}

func (g *Guarded) Credit(ctx context.Context, account domain.Principal, amount domain.Amount) (domain.Amount, error) {
	var balance domain.Amount
	err := g.call(ctx, "credit", func() error {
		var err error
		balance, err = g.next.Credit(ctx, account, amount)
		return err
	})
	return balance, err
}

// Health reports an open circuit as unhealthy.
func (g *Guarded) Health(context.Context) error {
	if g.breaker.IsOpen() {
		return fmt.Errorf("ledger circuit %s is open: %w", g.breaker.Name(), sentinel.ErrUnavailable)
	}
	return nil
}

func (g *Guarded) call(ctx context.Context, op string, fn func() error) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("ledger %s rejected, circuit open: %w", op, sentinel.ErrUnavailable)
	}

	err := fn()
	if isBackendFailure(err) {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "ledger circuit opened",
				"breaker", g.breaker.Name(),
				"operation", op,
				"error", err,
			)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "ledger circuit closed", "breaker", g.breaker.Name())
	}
	return err
}

// isBackendFailure separates outages from answers: a rejected transfer or a
// cancelled caller says nothing about backend health.
func isBackendFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, sentinel.ErrInsufficientFunds),
		errors.Is(err, sentinel.ErrInvalidState),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
