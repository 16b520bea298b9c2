//go:build integration

package redis_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	ledgerredis "warden/internal/ledger/redis"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
	"warden/pkg/testutil/containers"
)

type LedgerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	ledger *ledgerredis.Ledger
}

func TestLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.ledger = ledgerredis.New(s.redis.Client)
}

func (s *LedgerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *LedgerSuite) balance(account domain.Principal) domain.Amount {
	b, err := s.ledger.BalanceOf(context.Background(), account)
	s.Require().NoError(err)
	return b
}

func (s *LedgerSuite) TestTransfer() {
	ctx := context.Background()
	_, err := s.ledger.Credit(ctx, "alice", 100)
	s.Require().NoError(err)

	s.Require().NoError(s.ledger.Transfer(ctx, "alice", "bob", 100))
	s.Equal(domain.Amount(0), s.balance("alice"))
	s.Equal(domain.Amount(100), s.balance("bob"))
}

func (s *LedgerSuite) TestTransferShortfallRestoresBalance() {
	ctx := context.Background()
	_, err := s.ledger.Credit(ctx, "alice", 10)
	s.Require().NoError(err)

	s.Require().ErrorIs(s.ledger.Transfer(ctx, "alice", "bob", 11), sentinel.ErrInsufficientFunds)
	s.Equal(domain.Amount(10), s.balance("alice"))
	s.Equal(domain.Amount(0), s.balance("bob"))
}

func (s *LedgerSuite) TestTransferOverflowRestoresBalance() {
	ctx := context.Background()
	_, err := s.ledger.Credit(ctx, "alice", 5)
	s.Require().NoError(err)
	_, err = s.ledger.Credit(ctx, "bob", domain.MaxAmount)
	s.Require().NoError(err)

	s.Require().ErrorIs(s.ledger.Transfer(ctx, "alice", "bob", 5), sentinel.ErrInvalidState)
	s.Equal(domain.Amount(5), s.balance("alice"))
}

func (s *LedgerSuite) TestCreditOverflow() {
	ctx := context.Background()
	_, err := s.ledger.Credit(ctx, "alice", domain.MaxAmount)
	s.Require().NoError(err)
	_, err = s.ledger.Credit(ctx, "alice", 1)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *LedgerSuite) TestConcurrentDebitsNeverOverdraw() {
	ctx := context.Background()
	_, err := s.ledger.Credit(ctx, "alice", 100)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.ledger.Transfer(ctx, "alice", "bob", 10)
		}()
	}
	wg.Wait()

	s.Equal(domain.Amount(0), s.balance("alice"))
	s.Equal(domain.Amount(100), s.balance("bob"))
}
