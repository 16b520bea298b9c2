package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the full amount", func(t *testing.T) {
		l := New()
		_, err := l.Credit(ctx, "alice", 100)
		require.NoError(t, err)

		require.NoError(t, l.Transfer(ctx, "alice", "bob", 40))

		alice, _ := l.BalanceOf(ctx, "alice")
		bob, _ := l.BalanceOf(ctx, "bob")
		assert.Equal(t, domain.Amount(60), alice)
		assert.Equal(t, domain.Amount(40), bob)
	})

	t.Run("rejects a shortfall without moving anything", func(t *testing.T) {
		l := New()
		_, err := l.Credit(ctx, "alice", 10)
		require.NoError(t, err)

		err = l.Transfer(ctx, "alice", "bob", 11)
		require.ErrorIs(t, err, sentinel.ErrInsufficientFunds)

		alice, _ := l.BalanceOf(ctx, "alice")
		bob, _ := l.BalanceOf(ctx, "bob")
		assert.Equal(t, domain.Amount(10), alice)
		assert.Equal(t, domain.Amount(0), bob)
	})

	t.Run("zero amount from an unknown account succeeds", func(t *testing.T) {
		l := New()
		require.NoError(t, l.Transfer(ctx, "nobody", "bob", 0))
	})

	t.Run("self transfer keeps the balance", func(t *testing.T) {
		l := New()
		_, err := l.Credit(ctx, "alice", 5)
		require.NoError(t, err)
		require.NoError(t, l.Transfer(ctx, "alice", "alice", 5))
		alice, _ := l.BalanceOf(ctx, "alice")
		assert.Equal(t, domain.Amount(5), alice)
	})
}

func TestCreditOverflow(t *testing.T) {
	ctx := context.Background()
	l := New()
	_, err := l.Credit(ctx, "alice", domain.MaxAmount)
	require.NoError(t, err)

	_, err = l.Credit(ctx, "alice", 1)
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	ctx := context.Background()
	l := New()
	_, err := l.Credit(ctx, "alice", 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = l.Transfer(ctx, "alice", "bob", 7)
			} else {
				_ = l.Transfer(ctx, "bob", "alice", 3)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, domain.Amount(1000), l.Total())
}
