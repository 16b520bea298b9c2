// Package memory is a process-local ledger for development and tests.
package memory

import (
	"context"
	"sync"

	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

type Ledger struct {
	mu       sync.Mutex
	balances map[domain.Principal]domain.Amount
}

func New() *Ledger {
	return &Ledger{balances: make(map[domain.Principal]domain.Amount)}
}

func (l *Ledger) Transfer(_ context.Context, from, to domain.Principal, amount domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return sentinel.ErrInsufficientFunds
	}
	if from == to || amount == 0 {
		return nil
	}
	if l.balances[to] > domain.MaxAmount-amount {
		return sentinel.ErrInvalidState
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

func (l *Ledger) BalanceOf(_ context.Context, account domain.Principal) (domain.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

func (l *Ledger) Credit(_ context.Context, account domain.Principal, amount domain.Amount) (domain.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[account] > domain.MaxAmount-amount {
		return 0, sentinel.ErrInvalidState
	}
	l.balances[account] += amount
	return l.balances[account], nil
}

// Total returns the sum of all balances.
func (l *Ledger) Total() domain.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total domain.Amount
	for _, b := range l.balances {
		total += b
	}
	return total
}
