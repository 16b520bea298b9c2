package service

import (
	"context"
	"sync"
	"time"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// StoreTx provides the transactional boundary of one wallet operation.
// Implementations wrap a database transaction or, in memory, a lock scoped to
// the wallet. fn receives the context that carries the transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, walletID domain.WalletID, fn func(ctx context.Context) error) error
}

// numWalletShards spreads wallets over independent locks so operations on
// different wallets rarely contend while operations on one wallet never
// interleave.
const numWalletShards = 128

// defaultWalletTxTimeout is the maximum duration of a wallet transaction.
const defaultWalletTxTimeout = 5 * time.Second

// ShardedTx serializes operations per wallet for the in-memory backends.
// It gives no rollback: callers must not mutate shared state until every
// check has passed.
type ShardedTx struct {
	shards  [numWalletShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx(timeout time.Duration) *ShardedTx {
	return &ShardedTx{timeout: timeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, walletID domain.WalletID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultWalletTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := shardFor(walletID)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// shardFor hashes the wallet id with FNV-1a.
func shardFor(id domain.WalletID) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range id {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numWalletShards)
}
