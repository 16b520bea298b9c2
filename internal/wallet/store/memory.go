package store

import (
	"context"
	"sync"

	"warden/internal/wallet/models"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// InMemory keeps wallet snapshots in a map. Every read and write copies the
// wallet, so callers never share state with the store.
type InMemory struct {
	mu      sync.RWMutex
	wallets map[domain.WalletID]*models.Wallet
}

func NewInMemory() *InMemory {
	return &InMemory{wallets: make(map[domain.WalletID]*models.Wallet)}
}

func (s *InMemory) Create(_ context.Context, wallet *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[wallet.ID]; exists {
		return sentinel.ErrConflict
	}
	s.wallets[wallet.ID] = wallet.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.WalletID) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallet, ok := s.wallets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return wallet.Clone(), nil
}

// FindByIDForUpdate is FindByID. Exclusion comes from the sharded wallet
// lock the in-memory transaction holds.
func (s *InMemory) FindByIDForUpdate(ctx context.Context, id domain.WalletID) (*models.Wallet, error) {
	return s.FindByID(ctx, id)
}

func (s *InMemory) Save(_ context.Context, wallet *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[wallet.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.wallets[wallet.ID] = wallet.Clone()
	return nil
}

// Count returns the number of stored wallets.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wallets), nil
}
