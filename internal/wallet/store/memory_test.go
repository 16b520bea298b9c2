package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/wallet/models"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) newWallet() *models.Wallet {
	w, err := models.NewWallet(domain.NewWalletID(), "owner", []domain.Principal{"g1", "g2", "g3"}, nil, time.Now())
	s.Require().NoError(err)
	return w
}

func (s *InMemoryStoreSuite) TestCreate() {
	s.Run("stores a copy of the wallet", func() {
		w := s.newWallet()
		s.Require().NoError(s.store.Create(s.ctx, w))

		w.Votes = 99
		found, err := s.store.FindByID(s.ctx, w.ID)
		s.Require().NoError(err)
		s.Equal(0, found.Votes)
	})

	s.Run("rejects a duplicate id", func() {
		w := s.newWallet()
		s.Require().NoError(s.store.Create(s.ctx, w))
		s.Require().ErrorIs(s.store.Create(s.ctx, w), sentinel.ErrConflict)
	})
}

func (s *InMemoryStoreSuite) TestFindByID() {
	s.Run("returns not found for an unknown id", func() {
		_, err := s.store.FindByID(s.ctx, domain.NewWalletID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned wallets do not alias stored state", func() {
		w := s.newWallet()
		s.Require().NoError(s.store.Create(s.ctx, w))

		found, err := s.store.FindByIDForUpdate(s.ctx, w.ID)
		s.Require().NoError(err)
		found.Guardians["g1"] = true

		again, err := s.store.FindByID(s.ctx, w.ID)
		s.Require().NoError(err)
		s.False(again.Guardians["g1"])
	})
}

func (s *InMemoryStoreSuite) TestSave() {
	s.Run("persists the recovery tally", func() {
		w := s.newWallet()
		s.Require().NoError(s.store.Create(s.ctx, w))

		_, err := w.CastVote("g1", "safe-address", time.Now())
		s.Require().NoError(err)
		s.Require().NoError(s.store.Save(s.ctx, w))

		found, err := s.store.FindByID(s.ctx, w.ID)
		s.Require().NoError(err)
		s.Equal(1, found.Votes)
		s.True(found.Guardians["g1"])
		s.Require().NotNil(found.RecoveryAddress)
		s.Equal(domain.Principal("safe-address"), *found.RecoveryAddress)
	})

	s.Run("returns not found for an unknown wallet", func() {
		s.Require().ErrorIs(s.store.Save(s.ctx, s.newWallet()), sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentCreate() {
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.Create(s.ctx, s.newWallet()))
		}()
	}
	wg.Wait()

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(50, n)
}
